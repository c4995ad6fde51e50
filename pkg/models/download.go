// Package models defines the data structures used throughout the application
package models

import (
	"math"
	"time"
)

// DownloadStatus represents the current status of a download job
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusInProgress DownloadStatus = "in_progress"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
)

// IsTerminal reports whether no further transitions can happen
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Song is the lightweight metadata a resolver produces for one track
type Song struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// SongOutcome is the final state of a single song task
type SongOutcome string

const (
	SongPending   SongOutcome = "pending"
	SongSucceeded SongOutcome = "succeeded"
	SongFailed    SongOutcome = "failed"
)

// SongTask is one song's worth of work inside a DownloadJob
type SongTask struct {
	JobID    string      `json:"job_id"`
	Index    int         `json:"index"`
	Song     Song        `json:"song"`
	Attempts int         `json:"attempts"`
	Outcome  SongOutcome `json:"outcome"`
	Error    string      `json:"error,omitempty"`
}

// DownloadJob represents the work created for one submitted URL
type DownloadJob struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"-"`
	URL            string         `json:"url"`
	Status         DownloadStatus `json:"status"`
	Progress       float64        `json:"progress"`
	CompletedSongs int            `json:"completed_songs"`
	FailedSongs    int            `json:"failed_songs"`
	TotalSongs     int            `json:"total_songs"`
	Error          string         `json:"error,omitempty"`
	DownloadID     string         `json:"download_id,omitempty"`
	SizeBytes      int64          `json:"size_bytes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// FinishedSongs returns how many song tasks reached an outcome
func (j *DownloadJob) FinishedSongs() int {
	return j.CompletedSongs + j.FailedSongs
}

// Session is a client identity established through a cookie
type Session struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	LastSeenAt         time.Time `json:"last_seen_at"`
	CompletedDownloads int64     `json:"completed_downloads"`
}

// Stats is the snapshot returned by the stats endpoint
type Stats struct {
	ActiveDownloads  int     `json:"active_downloads"`
	SessionDownloads int64   `json:"session_downloads"`
	GlobalDownloads  int64   `json:"global_downloads"`
	TotalSizeMB      float64 `json:"total_size_mb"`

	RecentDownloads []RecentDownload `json:"recent_downloads"`
}

// RecentDownload is one of the newest completed downloads of a session
type RecentDownload struct {
	DownloadID string    `json:"download_id"`
	Name       string    `json:"name"`
	Files      int       `json:"files"`
	SizeMB     float64   `json:"size_mb"`
	CreatedAt  time.Time `json:"created_at"`
}

// CompletedDownload is a ledger row written when a job completes
type CompletedDownload struct {
	ID          int64     `json:"id" db:"id"`
	JobID       string    `json:"job_id" db:"job_id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	URL         string    `json:"url" db:"url"`
	DownloadID  string    `json:"download_id" db:"download_id"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Songs       int       `json:"songs" db:"songs"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// ArtifactRecord describes the stored output of a completed job
type ArtifactRecord struct {
	DownloadID  string     `json:"download_id" db:"download_id"`
	JobID       string     `json:"job_id" db:"job_id"`
	SessionID   string     `json:"session_id" db:"session_id"`
	URL         string     `json:"url" db:"url"`
	Directory   string     `json:"directory" db:"directory"`
	Files       []string   `json:"files" db:"files"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
}

// Published reports whether the artifact belongs to a job that has been recorded as completed
func (a *ArtifactRecord) Published() bool {
	return a.PublishedAt != nil
}

// BytesToMB converts a byte count to megabytes rounded to two decimals
func BytesToMB(b int64) float64 {
	return math.Round(float64(b)/(1024*1024)*100) / 100
}

package downloader

import (
	"context"

	"music-downloader/pkg/models"
)

// ArtifactStore keeps the files of a finished job
//
//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks
type ArtifactStore interface {
	Store(ctx context.Context, job models.DownloadJob, files []string) (*models.ArtifactRecord, error)
	Discard(downloadID string) error
}

// CompletionRecorder adds completed jobs to the global ledger
type CompletionRecorder interface {
	Record(completed *models.CompletedDownload) error
}

// SessionCounter counts completed jobs per session
type SessionCounter interface {
	IncrementCompleted(sessionID string) (int64, error)
}

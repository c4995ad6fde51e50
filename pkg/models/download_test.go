package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadStatus_Constants(t *testing.T) {
	require.Equal(t, DownloadStatus("queued"), StatusQueued)
	require.Equal(t, DownloadStatus("in_progress"), StatusInProgress)
	require.Equal(t, DownloadStatus("completed"), StatusCompleted)
	require.Equal(t, DownloadStatus("failed"), StatusFailed)
}

func TestDownloadStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status DownloadStatus
		want   bool
	}{
		{StatusQueued, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			require.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestDownloadJob_JSON(t *testing.T) {
	now := time.Now()
	job := &DownloadJob{
		ID:             "job-1",
		SessionID:      "secret-session",
		URL:            "https://youtube.com/watch?v=abc",
		Status:         StatusCompleted,
		Progress:       100,
		CompletedSongs: 1,
		TotalSongs:     1,
		DownloadID:     "dl-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	require.Equal(t, "completed", fields["status"])
	require.Equal(t, float64(100), fields["progress"])
	require.Equal(t, float64(1), fields["completed_songs"])
	require.Equal(t, float64(1), fields["total_songs"])
	require.Equal(t, "dl-1", fields["download_id"])
	require.NotContains(t, fields, "error")
	require.NotContains(t, fields, "SessionID")
	require.NotContains(t, string(data), "secret-session")
}

func TestDownloadJob_FinishedSongs(t *testing.T) {
	job := &DownloadJob{CompletedSongs: 3, FailedSongs: 2, TotalSongs: 7}
	require.Equal(t, 5, job.FinishedSongs())
}

func TestBytesToMB(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  float64
	}{
		{"zero", 0, 0},
		{"one megabyte", 1024 * 1024, 1},
		{"rounded", 1572864 + 4000, 1.5},
		{"two decimals", 3*1024*1024 + 256*1024, 3.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BytesToMB(tt.bytes))
		})
	}
}

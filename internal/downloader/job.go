package downloader

import (
	"context"
	"math"
	"sync"
	"time"

	"music-downloader/pkg/models"
)

// jobRun is the in-flight bookkeeping of one job
type jobRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	job     models.DownloadJob
	workDir string

	mu         sync.Mutex
	tasks      []models.SongTask
	fractions  []float64
	files      []string
	completed  int
	failed     int
	firstErr   error
	started    bool
	lastReport time.Time
}

func newJobRun(ctx context.Context, cancel context.CancelFunc, job models.DownloadJob, songs []models.Song, workDir string) *jobRun {
	tasks := make([]models.SongTask, len(songs))
	for i, song := range songs {
		tasks[i] = models.SongTask{
			JobID:   job.ID,
			Index:   i,
			Song:    song,
			Outcome: models.SongPending,
		}
	}

	return &jobRun{
		ctx:       ctx,
		cancel:    cancel,
		job:       job,
		workDir:   workDir,
		tasks:     tasks,
		fractions: make([]float64, len(songs)),
		files:     make([]string, len(songs)),
	}
}

// songTask is the unit handed to workers
type songTask struct {
	run   *jobRun
	index int
}

func (t *songTask) song() models.Song {
	return t.run.tasks[t.index].Song
}

// progressLocked returns the job percentage from the per-song fractions, one decimal
func (r *jobRun) progressLocked() float64 {
	if len(r.fractions) == 0 {
		return 0
	}
	var sum float64
	for _, f := range r.fractions {
		sum += f
	}
	return math.Round(sum/float64(len(r.fractions))*1000) / 10
}

func (r *jobRun) remainingLocked() int {
	return len(r.tasks) - r.completed - r.failed
}

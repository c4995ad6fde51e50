// Package downloader schedules download jobs and runs their songs on a bounded worker pool
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"music-downloader/internal/progress"
	"music-downloader/internal/quota"
	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

var (
	// ErrNoValidURLs is returned when none of the submitted URLs could be resolved
	ErrNoValidURLs = errors.New("no valid URLs submitted")
	// ErrNotRunning is returned when work is submitted before Start or after Stop
	ErrNotRunning = errors.New("download scheduler is not running")
)

const (
	defaultProgressInterval = 500 * time.Millisecond
	shutdownMessage         = "server shutting down"
	cancelledMessage        = "download cancelled"
)

// Config holds the tunables of the scheduler
type Config struct {
	WorkerPoolSize     int
	ResolveConcurrency int
	MaxRetries         int
	RetryBaseDelay     time.Duration
	SongTimeout        time.Duration
	ResolveTimeout     time.Duration
	WorkPath           string
}

// CheckResult is the outcome of counting the songs behind a batch of URLs
type CheckResult struct {
	TotalSongs    int  `json:"total_songs"`
	NeedsPassword bool `json:"needs_password"`
	Authorized    bool `json:"authorized"`
}

// Dependencies are the collaborators a Scheduler drives
type Dependencies struct {
	Resolver  resolver.Resolver
	Fetcher   resolver.Fetcher
	Gate      *quota.Gate
	Progress  *progress.Store
	Artifacts ArtifactStore
	Ledger    CompletionRecorder
	Sessions  SessionCounter
}

// Scheduler turns submitted URLs into jobs and feeds their songs to a fixed pool of workers
type Scheduler struct {
	cfg       Config
	resolver  resolver.Resolver
	fetcher   resolver.Fetcher
	gate      *quota.Gate
	progress  *progress.Store
	artifacts ArtifactStore
	ledger    CompletionRecorder
	sessions  SessionCounter
	logger    *slog.Logger

	tasks            chan *songTask
	progressInterval time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running map[string]*jobRun
	stopped bool

	workers sync.WaitGroup
	jobs    sync.WaitGroup
}

// NewScheduler creates a scheduler. Call Start before submitting work.
func NewScheduler(cfg Config, deps Dependencies) *Scheduler {
	if cfg.WorkerPoolSize < 1 {
		cfg.WorkerPoolSize = 1
	}
	if cfg.ResolveConcurrency < 1 {
		cfg.ResolveConcurrency = 1
	}

	return &Scheduler{
		cfg:              cfg,
		resolver:         deps.Resolver,
		fetcher:          deps.Fetcher,
		gate:             deps.Gate,
		progress:         deps.Progress,
		artifacts:        deps.Artifacts,
		ledger:           deps.Ledger,
		sessions:         deps.Sessions,
		logger:           slog.Default(),
		tasks:            make(chan *songTask),
		progressInterval: defaultProgressInterval,
		running:          make(map[string]*jobRun),
	}
}

// Start clears leftovers of a previous run from the work directory and launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return errors.New("download scheduler already started")
	}

	if err := os.RemoveAll(s.cfg.WorkPath); err != nil {
		return fmt.Errorf("failed to clear work directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.WorkPath, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.cfg.WorkerPoolSize; i++ {
		s.workers.Add(1)
		go s.worker(i)
	}

	s.logger.Info("Download scheduler started", "workers", s.cfg.WorkerPoolSize)
	return nil
}

// Stop cancels every running job and waits for workers and jobs to wind down.
// Interrupted jobs end failed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ctx == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	active := len(s.running)
	s.cancel()
	s.mu.Unlock()

	s.logger.Info("Download scheduler shutting down", "active_jobs", active)
	s.workers.Wait()
	s.jobs.Wait()
	s.logger.Info("Download scheduler stopped")
}

// CheckURLs resolves every URL and reports whether the batch needs the password.
// Any resolution failure is returned as is.
func (s *Scheduler) CheckURLs(ctx context.Context, urls []string, password string) (CheckResult, error) {
	urls = cleanURLs(urls)
	if len(urls) == 0 {
		return CheckResult{}, ErrNoValidURLs
	}

	resolutions := s.resolveAll(ctx, urls)
	total := 0
	for _, r := range resolutions {
		if r.err != nil {
			return CheckResult{}, r.err
		}
		total += len(r.songs)
	}

	decision := s.gate.Evaluate(total, password)
	return CheckResult{
		TotalSongs:    total,
		NeedsPassword: decision.NeedsPassword,
		Authorized:    decision.Authorized,
	}, nil
}

// Submit resolves the URLs, enforces the quota and starts one job per URL.
// Authorization failures create nothing. URLs that fail to resolve become failed jobs;
// when all of them fail the jobs are returned together with ErrNoValidURLs.
func (s *Scheduler) Submit(ctx context.Context, sessionID string, urls []string, password string) ([]models.DownloadJob, error) {
	if !s.isRunning() {
		return nil, ErrNotRunning
	}

	urls = cleanURLs(urls)
	if len(urls) == 0 {
		return nil, ErrNoValidURLs
	}

	resolutions := s.resolveAll(ctx, urls)

	total := 0
	for _, r := range resolutions {
		total += len(r.songs)
	}
	if err := s.gate.Authorize(total, password); err != nil {
		s.logger.Info("Submission rejected", "session_id", sessionID, "total_songs", total, "error", err)
		return nil, err
	}

	now := time.Now()
	jobs := make([]models.DownloadJob, 0, len(resolutions))
	starts := make([]jobStart, 0, len(resolutions))
	valid := 0
	for _, r := range resolutions {
		job := models.DownloadJob{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			URL:        r.url,
			Status:     models.StatusQueued,
			TotalSongs: len(r.songs),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if r.err != nil {
			job.Status = models.StatusFailed
			job.Error = resolutionMessage(r.err)
			job.FinishedAt = &now
			s.logger.Warn("URL could not be resolved", "url", r.url, "error", r.err)
		} else {
			valid++
		}
		jobs = append(jobs, job)
		starts = append(starts, jobStart{job: job, songs: r.songs})
	}

	if err := s.startJobs(starts); err != nil {
		return nil, err
	}

	if valid == 0 {
		return jobs, ErrNoValidURLs
	}

	s.logger.Info("Jobs submitted", "session_id", sessionID, "jobs", valid, "total_songs", total)
	return jobs, nil
}

type resolution struct {
	url   string
	songs []models.Song
	err   error
}

// resolveAll resolves every URL concurrently. A failing URL never cancels its siblings.
func (s *Scheduler) resolveAll(ctx context.Context, urls []string) []resolution {
	results := make([]resolution, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ResolveConcurrency)
	for i, u := range urls {
		results[i].url = u
		g.Go(func() error {
			rctx := gctx
			if s.cfg.ResolveTimeout > 0 {
				var cancel context.CancelFunc
				rctx, cancel = context.WithTimeout(gctx, s.cfg.ResolveTimeout)
				defer cancel()
			}
			results[i].songs, results[i].err = s.resolver.Resolve(rctx, u)
			if results[i].err == nil && len(results[i].songs) == 0 {
				results[i].err = &resolver.ResolutionError{URL: u, Reason: "no songs found"}
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil && !s.stopped
}

type jobStart struct {
	job   models.DownloadJob
	songs []models.Song
}

// startJobs registers a batch of jobs and launches a dispatcher for every job that has songs.
// Either the whole batch starts or, once the scheduler is stopping, nothing is registered.
func (s *Scheduler) startJobs(batch []jobStart) error {
	s.mu.Lock()
	if s.ctx == nil || s.stopped {
		s.mu.Unlock()
		return ErrNotRunning
	}
	runs := make([]*jobRun, 0, len(batch))
	for _, b := range batch {
		if b.job.Status == models.StatusFailed {
			continue
		}
		ctx, cancel := context.WithCancel(s.ctx)
		run := newJobRun(ctx, cancel, b.job, b.songs, filepath.Join(s.cfg.WorkPath, b.job.ID))
		s.running[b.job.ID] = run
		runs = append(runs, run)
	}
	s.jobs.Add(len(runs))
	s.mu.Unlock()

	for _, b := range batch {
		s.progress.Register(b.job)
	}
	for _, run := range runs {
		go s.dispatch(run)
	}
	return nil
}

// dispatch hands the songs of a job to the workers one by one. Songs that cannot be
// handed over because the job was cancelled are failed in place.
func (s *Scheduler) dispatch(run *jobRun) {
	for i := range run.tasks {
		task := &songTask{run: run, index: i}
		select {
		case s.tasks <- task:
		case <-run.ctx.Done():
			for j := i; j < len(run.tasks); j++ {
				s.songFinished(&songTask{run: run, index: j}, "", s.interruption())
			}
			return
		}
	}
}

// cancelJob cancels a running job; its remaining songs fail. Not exposed over HTTP.
func (s *Scheduler) cancelJob(jobID string) bool {
	s.mu.Lock()
	run, ok := s.running[jobID]
	s.mu.Unlock()
	if ok {
		run.cancel()
	}
	return ok
}

// RunningJobs returns the number of jobs that have not been finalized yet
func (s *Scheduler) RunningJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

func (s *Scheduler) forget(jobID string) {
	s.mu.Lock()
	delete(s.running, jobID)
	s.mu.Unlock()
}

func cleanURLs(urls []string) []string {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	return cleaned
}

func resolutionMessage(err error) string {
	if resErr, ok := resolver.AsResolutionError(err); ok {
		if resErr.Err != nil && !strings.Contains(resErr.Reason, resErr.Err.Error()) {
			return fmt.Sprintf("%s: %v", resErr.Reason, resErr.Err)
		}
		return resErr.Reason
	}
	return err.Error()
}

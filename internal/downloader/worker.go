package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

// worker pulls song tasks until the scheduler is stopped
func (s *Scheduler) worker(id int) {
	defer s.workers.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Download worker exiting", "worker", id)
			return
		case task := <-s.tasks:
			s.processSong(task)
		}
	}
}

// processSong downloads one song, retrying transient failures with exponential backoff
func (s *Scheduler) processSong(task *songTask) {
	run := task.run
	song := task.song()
	songDir := filepath.Join(run.workDir, strconv.Itoa(task.index))

	s.markStarted(run)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := run.ctx.Err(); err != nil {
			s.songFinished(task, "", s.interruption())
			return
		}

		if attempt > 1 {
			backoff := s.cfg.RetryBaseDelay * time.Duration(1<<uint(attempt-2))
			s.logger.Info("Retrying song after backoff",
				"job_id", run.job.ID,
				"song", song.Title,
				"attempt", attempt,
				"backoff", backoff)

			if !sleep(run.ctx, backoff) {
				s.songFinished(task, "", s.interruption())
				return
			}
			if err := os.RemoveAll(songDir); err != nil {
				s.logger.Warn("Failed to clear song directory", "job_id", run.job.ID, "song", song.Title, "error", err)
			}
		}

		s.recordAttempt(task, attempt)

		file, err := s.fetchSong(run.ctx, task, songDir)
		if err == nil {
			s.logger.Debug("Song downloaded",
				"job_id", run.job.ID,
				"song", song.Title,
				"size", humanize.Bytes(uint64(file.Size)))
			s.songFinished(task, file.Path, nil)
			return
		}
		lastErr = err

		if run.ctx.Err() != nil {
			s.songFinished(task, "", s.interruption())
			return
		}
		if !resolver.IsTransient(err) || attempt > s.cfg.MaxRetries {
			break
		}

		s.logger.Warn("Song attempt failed, will retry",
			"job_id", run.job.ID,
			"song", song.Title,
			"attempt", attempt,
			"error", err)
	}

	s.logger.Error("Song failed",
		"job_id", run.job.ID,
		"song", song.Title,
		"error", lastErr)
	s.songFinished(task, "", lastErr)
}

// fetchSong runs a single attempt under the per-song timeout
func (s *Scheduler) fetchSong(ctx context.Context, task *songTask, songDir string) (*resolver.File, error) {
	songCtx := ctx
	if s.cfg.SongTimeout > 0 {
		var cancel context.CancelFunc
		songCtx, cancel = context.WithTimeout(ctx, s.cfg.SongTimeout)
		defer cancel()
	}

	file, err := s.fetcher.Fetch(songCtx, task.song(), songDir, func(fraction float64) {
		s.songProgress(task, fraction)
	})
	if err != nil {
		if errors.Is(songCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &resolver.DownloadError{
				Song: task.song(),
				Err:  fmt.Errorf("timed out after %s: %w", s.cfg.SongTimeout, context.DeadlineExceeded),
			}
		}
		return nil, err
	}
	return file, nil
}

func (s *Scheduler) markStarted(run *jobRun) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.started {
		return
	}
	run.started = true
	s.progress.Update(run.job.ID, func(job *models.DownloadJob) {
		if job.Status == models.StatusQueued {
			job.Status = models.StatusInProgress
		}
	})
}

func (s *Scheduler) recordAttempt(task *songTask, attempt int) {
	task.run.mu.Lock()
	task.run.tasks[task.index].Attempts = attempt
	task.run.mu.Unlock()
}

// songProgress records the fraction of one song and publishes the job progress at most
// once per progress interval
func (s *Scheduler) songProgress(task *songTask, fraction float64) {
	run := task.run
	run.mu.Lock()
	defer run.mu.Unlock()

	if fraction > 1 {
		fraction = 1
	}
	if fraction <= run.fractions[task.index] {
		return
	}
	run.fractions[task.index] = fraction

	now := time.Now()
	if now.Sub(run.lastReport) < s.progressInterval {
		return
	}
	run.lastReport = now

	progress := run.progressLocked()
	s.progress.Update(run.job.ID, func(job *models.DownloadJob) {
		job.Progress = progress
	})
}

// songFinished records the outcome of a song and finalizes the job after the last one
func (s *Scheduler) songFinished(task *songTask, path string, err error) {
	run := task.run
	run.mu.Lock()

	t := &run.tasks[task.index]
	if t.Outcome != models.SongPending {
		run.mu.Unlock()
		return
	}

	if err != nil {
		t.Outcome = models.SongFailed
		t.Error = err.Error()
		run.failed++
		if run.firstErr == nil {
			run.firstErr = err
		}
	} else {
		t.Outcome = models.SongSucceeded
		run.files[task.index] = path
		run.completed++
	}
	run.fractions[task.index] = 1

	completed, failed := run.completed, run.failed
	progress := run.progressLocked()
	last := run.remainingLocked() == 0
	if !last {
		s.progress.Update(run.job.ID, func(job *models.DownloadJob) {
			job.CompletedSongs = completed
			job.FailedSongs = failed
			job.Progress = progress
		})
	}
	run.mu.Unlock()

	if last {
		s.finalize(run)
	}
}

// finalize stores the artifact of a fully successful job or fails it otherwise.
// The work directory is always removed.
func (s *Scheduler) finalize(run *jobRun) {
	defer s.jobs.Done()
	defer s.forget(run.job.ID)
	defer run.cancel()
	defer func() {
		if err := os.RemoveAll(run.workDir); err != nil {
			s.logger.Warn("Failed to remove work directory", "job_id", run.job.ID, "error", err)
		}
	}()

	run.mu.Lock()
	completed, failed, total := run.completed, run.failed, len(run.tasks)
	firstErr := run.firstErr
	files := append([]string(nil), run.files...)
	run.mu.Unlock()

	if failed > 0 {
		message := failureMessage(failed, total, firstErr)
		if run.ctx.Err() != nil {
			message = s.interruption().Error()
		}
		s.failJob(run, completed, failed, message)
		return
	}

	// Storing must not be cut short by a shutdown that arrives after the last song
	storeCtx := context.WithoutCancel(run.ctx)
	record, err := s.artifacts.Store(storeCtx, run.job, files)
	if err != nil {
		s.logger.Error("Failed to store artifact", "job_id", run.job.ID, "error", err)
		s.failJob(run, completed, failed, err.Error())
		return
	}

	now := time.Now()
	if err := s.ledger.Record(&models.CompletedDownload{
		JobID:       run.job.ID,
		SessionID:   run.job.SessionID,
		URL:         run.job.URL,
		DownloadID:  record.DownloadID,
		SizeBytes:   record.SizeBytes,
		Songs:       total,
		CompletedAt: now,
	}); err != nil {
		s.logger.Error("Failed to record completion", "job_id", run.job.ID, "error", err)
		if err := s.artifacts.Discard(record.DownloadID); err != nil {
			s.logger.Warn("Failed to discard artifact", "job_id", run.job.ID, "download_id", record.DownloadID, "error", err)
		}
		s.failJob(run, completed, failed, "failed to record completion")
		return
	}

	s.progress.Update(run.job.ID, func(job *models.DownloadJob) {
		job.Status = models.StatusCompleted
		job.Progress = 100
		job.CompletedSongs = completed
		job.FailedSongs = 0
		job.DownloadID = record.DownloadID
		job.SizeBytes = record.SizeBytes
		job.FinishedAt = &now
	})

	if _, err := s.sessions.IncrementCompleted(run.job.SessionID); err != nil {
		s.logger.Warn("Failed to bump session counter", "session_id", run.job.SessionID, "error", err)
	}

	s.logger.Info("Job completed",
		"job_id", run.job.ID,
		"url", run.job.URL,
		"download_id", record.DownloadID,
		"songs", total,
		"size", humanize.Bytes(uint64(record.SizeBytes)))
}

func (s *Scheduler) failJob(run *jobRun, completed, failed int, message string) {
	s.progress.Update(run.job.ID, func(job *models.DownloadJob) {
		job.Status = models.StatusFailed
		job.CompletedSongs = completed
		job.FailedSongs = failed
		job.Error = message
	})
	s.logger.Error("Job failed", "job_id", run.job.ID, "url", run.job.URL, "error", message)
}

func failureMessage(failed, total int, firstErr error) string {
	cause := "unknown error"
	if firstErr != nil {
		cause = firstErr.Error()
	}
	if total == 1 {
		return cause
	}
	return fmt.Sprintf("%d of %d songs failed: %s", failed, total, cause)
}

// interruption is the error recorded for songs cut short by a cancelled job
func (s *Scheduler) interruption() error {
	if s.ctx.Err() != nil {
		return errors.New(shutdownMessage)
	}
	return errors.New(cancelledMessage)
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

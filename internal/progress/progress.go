// Package progress holds the live state of every download job for status polling and push updates
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"music-downloader/pkg/models"
)

// Listener receives a copy of a job every time it changes. Listeners run under the
// store lock so they see changes in order; they must not block or call back into the Store.
type Listener func(job models.DownloadJob)

type key struct {
	sessionID string
	url       string
}

type entry struct {
	job      models.DownloadJob
	observed atomic.Bool
}

// Store keeps job snapshots keyed by job id, with an index of the latest job per (session, url)
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*entry
	latest    map[key]string
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates an empty progress store
func NewStore() *Store {
	return &Store{
		jobs:      make(map[string]*entry),
		latest:    make(map[key]string),
		listeners: make(map[int]Listener),
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// Register adds a job and makes it the latest for its (session, url)
func (s *Store) Register(job models.DownloadJob) {
	s.mu.Lock()
	s.jobs[job.ID] = &entry{job: job}
	s.latest[key{job.SessionID, job.URL}] = job.ID
	s.notifyLocked(job)
	s.mu.Unlock()
}

// Update applies fn to a job under the write lock. Progress never moves backwards,
// song counters stay within bounds and terminal jobs are frozen. The returned bool
// is false when the job is unknown or already terminal.
func (s *Store) Update(jobID string, fn func(job *models.DownloadJob)) (models.DownloadJob, bool) {
	s.mu.Lock()
	e, ok := s.jobs[jobID]
	if !ok || e.job.Status.IsTerminal() {
		s.mu.Unlock()
		return models.DownloadJob{}, false
	}

	previous := e.job
	updated := e.job
	fn(&updated)

	updated.ID = previous.ID
	updated.SessionID = previous.SessionID
	updated.URL = previous.URL
	updated.Progress = clampProgress(updated.Progress)
	if updated.Progress < previous.Progress {
		updated.Progress = previous.Progress
	}
	if updated.TotalSongs < 0 {
		updated.TotalSongs = 0
	}
	if updated.CompletedSongs > updated.TotalSongs {
		updated.CompletedSongs = updated.TotalSongs
	}
	if updated.CompletedSongs < 0 {
		updated.CompletedSongs = 0
	}
	updated.UpdatedAt = s.now()
	if updated.Status.IsTerminal() && updated.FinishedAt == nil {
		finished := updated.UpdatedAt
		updated.FinishedAt = &finished
	}

	e.job = updated
	s.notifyLocked(updated)
	s.mu.Unlock()

	return updated, true
}

// Get returns a copy of a job
func (s *Store) Get(jobID string) (models.DownloadJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return models.DownloadJob{}, false
	}
	return e.job, true
}

// SessionSnapshot returns the latest job for every URL the session submitted, keyed by URL.
// Terminal jobs returned here become eligible for pruning.
func (s *Store) SessionSnapshot(sessionID string) map[string]models.DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]models.DownloadJob)
	for k, jobID := range s.latest {
		if k.sessionID != sessionID {
			continue
		}
		e, ok := s.jobs[jobID]
		if !ok {
			continue
		}
		if e.job.Status.IsTerminal() {
			e.observed.Store(true)
		}
		snapshot[k.url] = e.job
	}
	return snapshot
}

// All returns a copy of every tracked job
func (s *Store) All() []models.DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.DownloadJob, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// ActiveCount returns the number of jobs that are queued or in progress
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.jobs {
		if !e.job.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// Prune drops terminal jobs that finished more than retention ago and have either
// been seen by a status poll or been superseded by a newer job for the same URL.
func (s *Store) Prune(retention time.Duration) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		job := e.job
		if !job.Status.IsTerminal() || job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}

		k := key{job.SessionID, job.URL}
		isLatest := s.latest[k] == id
		if isLatest && !e.observed.Load() {
			continue
		}

		delete(s.jobs, id)
		if isLatest {
			delete(s.latest, k)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug("Pruned finished jobs", "count", removed)
	}
	return removed
}

// DropSessions removes every terminal job belonging to the given sessions
func (s *Store) DropSessions(sessionIDs ...string) int {
	if len(sessionIDs) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		if _, ok := drop[e.job.SessionID]; !ok || !e.job.Status.IsTerminal() {
			continue
		}
		k := key{e.job.SessionID, e.job.URL}
		if s.latest[k] == id {
			delete(s.latest, k)
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}

// Subscribe registers a listener for job changes and returns a function that removes it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notifyLocked(job models.DownloadJob) {
	for _, l := range s.listeners {
		l(job)
	}
}

func clampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Package session tracks the cookie-identified clients of the server
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"music-downloader/pkg/models"
)

// CookieName is the cookie carrying the session id
const CookieName = "session_id"

// touchPersistInterval limits how often a mere visit is written through to the store
const touchPersistInterval = time.Minute

// Registry hands out sessions and keeps their counters. Reads are served from memory.
type Registry struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex
	sessions  map[string]*models.Session
	persisted map[string]time.Time
	store     Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistry creates a registry backed by store, loading any sessions it already holds
func NewRegistry(store Store) (*Registry, error) {
	if store == nil {
		store = NewMemoryStore()
	}

	r := &Registry{
		sessions:  make(map[string]*models.Session),
		persisted: make(map[string]time.Time),
		store:     store,
		logger:    slog.Default(),
		now:       time.Now,
	}

	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	for i := range loaded {
		s := loaded[i]
		r.sessions[s.ID] = &s
		r.persisted[s.ID] = s.LastSeenAt
	}

	if len(loaded) > 0 {
		r.logger.Info("Sessions restored", "count", len(loaded))
	}
	return r, nil
}

// Ensure returns the session named by cookieValue, or allocates a new one when the
// cookie is missing or unknown. created tells the caller to set the cookie.
func (r *Registry) Ensure(cookieValue string) (models.Session, bool, error) {
	now := r.now()

	if cookieValue != "" {
		r.mu.Lock()
		if s, ok := r.sessions[cookieValue]; ok {
			s.LastSeenAt = now
			snapshot := *s
			persist := now.Sub(r.persisted[s.ID]) >= touchPersistInterval
			if persist {
				r.persisted[s.ID] = now
			}
			r.mu.Unlock()

			if persist {
				if err := r.persist(snapshot.ID); err != nil && !errors.Is(err, ErrNotFound) {
					r.logger.Warn("Failed to persist session visit", "session_id", snapshot.ID, "error", err)
				}
			}
			return snapshot, false, nil
		}
		r.mu.Unlock()
	}

	s := &models.Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	snapshot := *s

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.persisted[s.ID] = now
	r.mu.Unlock()

	if err := r.persist(s.ID); err != nil {
		r.mu.Lock()
		delete(r.sessions, s.ID)
		delete(r.persisted, s.ID)
		r.mu.Unlock()
		return models.Session{}, false, fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Debug("Session created", "session_id", s.ID)
	return snapshot, true, nil
}

// IncrementCompleted bumps the completed download counter of a session and returns the new value
func (r *Registry) IncrementCompleted(id string) (int64, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return 0, ErrNotFound
	}
	s.CompletedDownloads++
	count := s.CompletedDownloads
	r.persisted[id] = r.now()
	r.mu.Unlock()

	if err := r.persist(id); err != nil && !errors.Is(err, ErrNotFound) {
		return count, fmt.Errorf("failed to persist session counter: %w", err)
	}
	return count, nil
}

// persist writes the current in-memory state of a session to the store. Writes are
// serialized and always read the latest state, so the store never regresses.
func (r *Registry) persist(id string) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.RLock()
	s, ok := r.sessions[id]
	var snapshot models.Session
	if ok {
		snapshot = *s
	}
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return r.store.Save(snapshot)
}

// Get returns a copy of the session
func (r *Registry) Get(id string) (models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}

// CompletedDownloads returns the counter of a session, zero when unknown
func (r *Registry) CompletedDownloads(id string) int64 {
	s, _ := r.Get(id)
	return s.CompletedDownloads
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PruneIdle forgets sessions not seen for longer than olderThan and returns their ids
func (r *Registry) PruneIdle(olderThan time.Duration) ([]string, error) {
	cutoff := r.now().Add(-olderThan)

	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if s.LastSeenAt.Before(cutoff) {
			expired = append(expired, id)
			delete(r.sessions, id)
			delete(r.persisted, id)
		}
	}
	r.mu.Unlock()

	if len(expired) == 0 {
		return nil, nil
	}

	r.saveMu.Lock()
	err := r.store.Delete(expired...)
	r.saveMu.Unlock()
	if err != nil {
		return expired, fmt.Errorf("failed to delete idle sessions: %w", err)
	}

	r.logger.Info("Pruned idle sessions", "count", len(expired))
	return expired, nil
}

// Close releases the underlying store
func (r *Registry) Close() error {
	return r.store.Close()
}

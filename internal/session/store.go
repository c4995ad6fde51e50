package session

import (
	"errors"
	"sync"

	"music-downloader/pkg/models"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// Store persists sessions. The Registry keeps its own in-memory view and writes through.
type Store interface {
	Load() ([]models.Session, error)
	Save(session models.Session) error
	Delete(ids ...string) error
	Close() error
}

// MemoryStore keeps sessions for the lifetime of the process only
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

// Load implements Store
func (m *MemoryStore) Load() ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Save implements Store
func (m *MemoryStore) Save(session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.sessions, id)
	}
	return nil
}

// Close implements Store
func (m *MemoryStore) Close() error {
	return nil
}

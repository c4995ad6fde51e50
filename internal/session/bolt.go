package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"music-downloader/pkg/models"
)

var bucketSessions = []byte("sessions")

// BoltStore persists sessions in a BoltDB file so they survive restarts
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return fmt.Errorf("failed to create sessions bucket: %w", err)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Load implements Store
func (b *BoltStore) Load() ([]models.Session, error) {
	var sessions []models.Session
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var s models.Session
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("failed to unmarshal session %s: %w", k, err)
			}
			sessions = append(sessions, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save implements Store
func (b *BoltStore) Save(session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(session.ID), data)
	})
}

// Delete implements Store
func (b *BoltStore) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		for _, id := range ids {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete session %s: %w", id, err)
			}
		}
		return nil
	})
}

// Close implements Store
func (b *BoltStore) Close() error {
	return b.db.Close()
}

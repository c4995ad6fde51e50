package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"music-downloader/internal/database"
)

// SweepOrphans removes entries under the root that no published index row refers to,
// such as directories left behind by a crash between moving files and recording the
// job's completion.
// Entries younger than minAge are skipped so an in-flight Store is never disturbed.
func (s *Store) SweepOrphans(minAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, &StorageError{Op: "sweep", Err: err}
	}

	cutoff := s.now().Add(-minAge)
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(s.root, entry.Name())
		if !s.isPathSafe(path) {
			s.logger.Warn("Skipping entry outside artifacts root", "path", path)
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if entry.IsDir() {
			if _, err := uuid.Parse(entry.Name()); err == nil {
				record, err := s.index.GetArtifact(entry.Name())
				if err == nil && record.Published() {
					continue
				}
				if err == nil {
					if err := s.Discard(entry.Name()); err != nil {
						s.logger.Warn("Failed to discard unpublished artifact", "download_id", entry.Name(), "error", err)
						continue
					}
					removed++
					continue
				}
				if !errors.Is(err, database.ErrArtifactNotFound) {
					s.logger.Warn("Failed to check artifact record", "download_id", entry.Name(), "error", err)
					continue
				}
			}
		}

		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("Failed to remove orphaned artifact entry", "path", path, "error", err)
			continue
		}
		s.logger.Info("Removed orphaned artifact entry", "path", path)
		removed++
	}

	return removed, nil
}

// isPathSafe reports whether path lies strictly inside the artifacts root
func (s *Store) isPathSafe(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absRoot+string(os.PathSeparator)) && absPath != absRoot
}

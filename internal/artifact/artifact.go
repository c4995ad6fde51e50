// Package artifact stores the files of completed jobs and serves them back
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"music-downloader/internal/database"
	"music-downloader/pkg/models"
)

// Index records which files belong to which download id
type Index interface {
	CreateArtifact(artifact *models.ArtifactRecord) error
	GetArtifact(downloadID string) (*models.ArtifactRecord, error)
	ListArtifactsBySession(sessionID string) ([]*models.ArtifactRecord, error)
	ListRecentArtifactsBySession(sessionID string, limit int) ([]*models.ArtifactRecord, error)
	ListArtifactsOlderThan(cutoff time.Time) ([]*models.ArtifactRecord, error)
	DeleteArtifact(downloadID string) error
}

// Content is a retrievable artifact. Size is -1 when the length is not known up front.
type Content struct {
	Name    string
	Size    int64
	ModTime time.Time
	Reader  io.ReadCloser
}

// Store keeps artifacts under root/<download_id>/
type Store struct {
	root   string
	index  Index
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates an artifact store rooted at root
func NewStore(root string, index Index) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	return &Store{
		root:   filepath.Clean(root),
		index:  index,
		logger: slog.Default(),
		now:    time.Now,
	}, nil
}

// Store moves the files of a finished job into a fresh download directory and
// indexes them. The returned download id is never reused. The artifact cannot be
// fetched until the job's completion is recorded, see database.RecordCompletion.
func (s *Store) Store(ctx context.Context, job models.DownloadJob, files []string) (*models.ArtifactRecord, error) {
	if len(files) == 0 {
		return nil, &StorageError{Op: "store", Err: errors.New("no files to store")}
	}

	downloadID := uuid.NewString()
	dir := filepath.Join(s.root, downloadID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "create directory", Err: err}
	}

	record := &models.ArtifactRecord{
		DownloadID: downloadID,
		JobID:      job.ID,
		SessionID:  job.SessionID,
		URL:        job.URL,
		Directory:  dir,
		CreatedAt:  s.now(),
	}

	taken := make(map[string]bool, len(files))
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dir)
			return nil, &StorageError{Op: "store", Err: err}
		}

		name := uniqueName(filepath.Base(src), taken)
		size, err := moveFile(src, filepath.Join(dir, name))
		if err != nil {
			os.RemoveAll(dir)
			return nil, &StorageError{Op: "move " + filepath.Base(src), Err: err}
		}
		record.Files = append(record.Files, name)
		record.SizeBytes += size
	}

	if err := s.index.CreateArtifact(record); err != nil {
		os.RemoveAll(dir)
		return nil, &StorageError{Op: "index", Err: err}
	}

	s.logger.Info("Artifact stored",
		"download_id", downloadID,
		"job_id", job.ID,
		"files", len(record.Files),
		"size", humanize.Bytes(uint64(record.SizeBytes)))
	return record, nil
}

// Fetch opens an artifact. A single file is returned as is, several files as a zip archive.
func (s *Store) Fetch(ctx context.Context, downloadID string) (*Content, error) {
	record, err := s.lookup(downloadID)
	if err != nil {
		return nil, err
	}

	if len(record.Files) == 1 {
		path := filepath.Join(record.Directory, record.Files[0])
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &NotFoundError{DownloadID: downloadID}
			}
			return nil, &StorageError{Op: "open", Err: err}
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, &StorageError{Op: "stat", Err: err}
		}
		return &Content{
			Name:    record.Files[0],
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Reader:  file,
		}, nil
	}

	return &Content{
		Name:    archiveName(record),
		Size:    -1,
		ModTime: record.CreatedAt,
		Reader:  streamArchive(ctx, s.logger, []archiveSource{{record: record}}),
	}, nil
}

// FetchAll bundles several downloads into one zip archive with a folder per download
func (s *Store) FetchAll(ctx context.Context, downloadIDs []string) (*Content, error) {
	if len(downloadIDs) == 0 {
		return nil, &NotFoundError{}
	}

	sources := make([]archiveSource, 0, len(downloadIDs))
	folders := make(map[string]bool, len(downloadIDs))
	for _, id := range downloadIDs {
		record, err := s.lookup(id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, archiveSource{
			record: record,
			folder: uniqueName(folderName(record), folders),
		})
	}

	return &Content{
		Name:    "music-downloads.zip",
		Size:    -1,
		ModTime: s.now(),
		Reader:  streamArchive(ctx, s.logger, sources),
	}, nil
}

// SessionDownloads returns the download ids owned by a session, oldest first
func (s *Store) SessionDownloads(sessionID string) ([]string, error) {
	records, err := s.index.ListArtifactsBySession(sessionID)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.DownloadID)
	}
	return ids, nil
}

// RecentDownloads returns up to limit of a session's completed downloads, newest first
func (s *Store) RecentDownloads(sessionID string, limit int) ([]models.RecentDownload, error) {
	records, err := s.index.ListRecentArtifactsBySession(sessionID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list recent", Err: err}
	}
	recent := make([]models.RecentDownload, 0, len(records))
	for _, record := range records {
		name := archiveName(record)
		if len(record.Files) == 1 {
			name = record.Files[0]
		}
		recent = append(recent, models.RecentDownload{
			DownloadID: record.DownloadID,
			Name:       name,
			Files:      len(record.Files),
			SizeMB:     models.BytesToMB(record.SizeBytes),
			CreatedAt:  record.CreatedAt,
		})
	}
	return recent, nil
}

// Discard removes an artifact whose job never completed, files and index row
func (s *Store) Discard(downloadID string) error {
	if _, err := uuid.Parse(downloadID); err != nil {
		return &NotFoundError{DownloadID: downloadID}
	}
	if err := os.RemoveAll(s.directoryFor(downloadID)); err != nil {
		return &StorageError{Op: "discard", Err: err}
	}
	if err := s.index.DeleteArtifact(downloadID); err != nil {
		return &StorageError{Op: "discard", Err: err}
	}
	s.logger.Info("Artifact discarded", "download_id", downloadID)
	return nil
}

// DeleteOlderThan removes artifacts created more than retention ago
func (s *Store) DeleteOlderThan(retention time.Duration) (int, error) {
	records, err := s.index.ListArtifactsOlderThan(s.now().Add(-retention))
	if err != nil {
		return 0, &StorageError{Op: "list expired", Err: err}
	}

	deleted := 0
	for _, record := range records {
		if err := os.RemoveAll(s.directoryFor(record.DownloadID)); err != nil {
			s.logger.Error("Failed to remove artifact directory", "download_id", record.DownloadID, "error", err)
			continue
		}
		if err := s.index.DeleteArtifact(record.DownloadID); err != nil {
			s.logger.Error("Failed to delete artifact record", "download_id", record.DownloadID, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("Expired artifacts removed", "count", deleted)
	}
	return deleted, nil
}

func (s *Store) lookup(downloadID string) (*models.ArtifactRecord, error) {
	if _, err := uuid.Parse(downloadID); err != nil {
		return nil, &NotFoundError{DownloadID: downloadID}
	}

	record, err := s.index.GetArtifact(downloadID)
	if err != nil {
		if errors.Is(err, database.ErrArtifactNotFound) {
			return nil, &NotFoundError{DownloadID: downloadID}
		}
		return nil, &StorageError{Op: "lookup", Err: err}
	}
	if !record.Published() {
		return nil, &NotFoundError{DownloadID: downloadID}
	}

	// Never trust the stored directory to point outside the root
	record.Directory = s.directoryFor(record.DownloadID)
	return record, nil
}

func (s *Store) directoryFor(downloadID string) string {
	return filepath.Join(s.root, filepath.Base(downloadID))
}

// moveFile renames src to dst, copying when they live on different filesystems
func moveFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(src, dst); err == nil {
		return info.Size(), nil
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	os.Remove(src)
	return written, nil
}

// uniqueName returns name, or name with a " (n)" suffix if it is already taken
func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
	}
	taken[candidate] = true
	return candidate
}

func archiveName(record *models.ArtifactRecord) string {
	return folderName(record) + ".zip"
}

func folderName(record *models.ArtifactRecord) string {
	return "download-" + strings.SplitN(record.DownloadID, "-", 2)[0]
}

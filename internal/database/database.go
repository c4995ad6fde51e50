// Package database provides SQLite database operations for the application
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"music-downloader/pkg/models"

	_ "modernc.org/sqlite"
)

// ErrArtifactNotFound is returned when no artifact row matches a download id
var ErrArtifactNotFound = errors.New("artifact not found")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	// Add connection parameters to help with concurrent access
	connString := dbPath
	if dbPath != ":memory:" {
		connString = dbPath + "?_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL"
	}

	conn, err := sql.Open("sqlite", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		global_downloads INTEGER NOT NULL DEFAULT 0,
		total_bytes INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS completed_downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		download_id TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		songs INTEGER NOT NULL DEFAULT 0,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completed_downloads_session ON completed_downloads(session_id);
	CREATE INDEX IF NOT EXISTS idx_completed_downloads_completed_at ON completed_downloads(completed_at);

	CREATE TABLE IF NOT EXISTS artifacts (
		download_id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		directory TEXT NOT NULL,
		files TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		published_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}

	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO ledger (id, global_downloads, total_bytes, updated_at) VALUES (1, 0, 0, ?)",
		time.Now(),
	)
	return err
}

// LedgerTotals returns the all-time completed download count and byte total
func (db *DB) LedgerTotals() (count int64, totalBytes int64, err error) {
	err = db.conn.QueryRow("SELECT global_downloads, total_bytes FROM ledger WHERE id = 1").Scan(&count, &totalBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read ledger: %w", err)
	}
	return count, totalBytes, nil
}

// RecordCompletion inserts a completed download, bumps the ledger and publishes the
// download's artifact in one transaction
func (db *DB) RecordCompletion(completed *models.CompletedDownload) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
	INSERT INTO completed_downloads (
		job_id, session_id, url, download_id, size_bytes, songs, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		completed.JobID, completed.SessionID, completed.URL, completed.DownloadID,
		completed.SizeBytes, completed.Songs, completed.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert completed download: %w", err)
	}

	if _, err := tx.Exec(`
	UPDATE ledger SET
		global_downloads = global_downloads + 1,
		total_bytes = total_bytes + ?,
		updated_at = ?
	WHERE id = 1
	`, completed.SizeBytes, completed.CompletedAt); err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE artifacts SET published_at = ? WHERE download_id = ?",
		completed.CompletedAt, completed.DownloadID,
	); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		completed.ID = id
	}
	return nil
}

// DeleteOldCompletedDownloads removes ledger history rows older than the given duration.
// The ledger totals are left untouched.
func (db *DB) DeleteOldCompletedDownloads(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := db.conn.Exec("DELETE FROM completed_downloads WHERE completed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old completed downloads: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Info("Deleted old completed downloads", "count", rowsAffected, "cutoff", cutoff)
	}

	return rowsAffected, nil
}

// CreateArtifact stores the artifact index row for a finished job. The row stays
// unpublished until RecordCompletion commits.
func (db *DB) CreateArtifact(artifact *models.ArtifactRecord) error {
	files, err := json.Marshal(artifact.Files)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact files: %w", err)
	}

	_, err = db.conn.Exec(`
	INSERT INTO artifacts (
		download_id, job_id, session_id, url, directory, files, size_bytes, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		artifact.DownloadID, artifact.JobID, artifact.SessionID, artifact.URL,
		artifact.Directory, string(files), artifact.SizeBytes, artifact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	return nil
}

// GetArtifact retrieves an artifact by download id
func (db *DB) GetArtifact(downloadID string) (*models.ArtifactRecord, error) {
	row := db.conn.QueryRow(`
	SELECT download_id, job_id, session_id, url, directory, files, size_bytes, created_at, published_at
	FROM artifacts WHERE download_id = ?
	`, downloadID)

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return artifact, nil
}

// ListArtifactsBySession returns a session's published artifacts, oldest first
func (db *DB) ListArtifactsBySession(sessionID string) ([]*models.ArtifactRecord, error) {
	return db.queryArtifacts(`
	SELECT download_id, job_id, session_id, url, directory, files, size_bytes, created_at, published_at
	FROM artifacts WHERE session_id = ? AND published_at IS NOT NULL ORDER BY created_at ASC
	`, sessionID)
}

// ListRecentArtifactsBySession returns up to limit of a session's published artifacts, newest first
func (db *DB) ListRecentArtifactsBySession(sessionID string, limit int) ([]*models.ArtifactRecord, error) {
	return db.queryArtifacts(`
	SELECT download_id, job_id, session_id, url, directory, files, size_bytes, created_at, published_at
	FROM artifacts WHERE session_id = ? AND published_at IS NOT NULL ORDER BY created_at DESC LIMIT ?
	`, sessionID, limit)
}

// ListArtifactsOlderThan returns artifacts created before the cutoff
func (db *DB) ListArtifactsOlderThan(cutoff time.Time) ([]*models.ArtifactRecord, error) {
	return db.queryArtifacts(`
	SELECT download_id, job_id, session_id, url, directory, files, size_bytes, created_at, published_at
	FROM artifacts WHERE created_at < ? ORDER BY created_at ASC
	`, cutoff)
}

// DeleteArtifact removes a single artifact row
func (db *DB) DeleteArtifact(downloadID string) error {
	if _, err := db.conn.Exec("DELETE FROM artifacts WHERE download_id = ?", downloadID); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

func (db *DB) queryArtifacts(query string, args ...interface{}) ([]*models.ArtifactRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.ArtifactRecord
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*models.ArtifactRecord, error) {
	var artifact models.ArtifactRecord
	var files string
	var publishedAt sql.NullTime

	err := row.Scan(
		&artifact.DownloadID, &artifact.JobID, &artifact.SessionID, &artifact.URL,
		&artifact.Directory, &files, &artifact.SizeBytes, &artifact.CreatedAt, &publishedAt,
	)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		artifact.PublishedAt = &publishedAt.Time
	}

	if err := json.Unmarshal([]byte(files), &artifact.Files); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact files: %w", err)
	}

	return &artifact, nil
}

// Package stats keeps the process-wide download ledger and builds stats snapshots
package stats

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"music-downloader/pkg/models"
)

// LedgerStore is the durable side of the ledger
type LedgerStore interface {
	LedgerTotals() (count int64, totalBytes int64, err error)
	RecordCompletion(completed *models.CompletedDownload) error
}

// Ledger counts every completed download. Writes go to the store first and are
// mirrored into atomic counters so readers never touch the disk.
type Ledger struct {
	store  LedgerStore
	mu     sync.Mutex
	count  atomic.Int64
	bytes  atomic.Int64
	logger *slog.Logger
}

// NewLedger creates a ledger primed with the totals already in store
func NewLedger(store LedgerStore) (*Ledger, error) {
	count, totalBytes, err := store.LedgerTotals()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger totals: %w", err)
	}

	l := &Ledger{store: store, logger: slog.Default()}
	l.count.Store(count)
	l.bytes.Store(totalBytes)

	l.logger.Info("Ledger loaded", "global_downloads", count, "total_size", humanize.Bytes(uint64(totalBytes)))
	return l, nil
}

// Record durably adds a completed download to the ledger
func (l *Ledger) Record(completed *models.CompletedDownload) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.RecordCompletion(completed); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	l.count.Add(1)
	l.bytes.Add(completed.SizeBytes)
	return nil
}

// Totals returns the all-time completed downloads and their byte total
func (l *Ledger) Totals() (count int64, totalBytes int64) {
	return l.count.Load(), l.bytes.Load()
}

// ActiveCounter reports how many jobs are queued or running
type ActiveCounter interface {
	ActiveCount() int
}

// SessionCounter reports how many downloads a session has completed
type SessionCounter interface {
	CompletedDownloads(sessionID string) int64
}

// RecentSource lists the newest completed downloads of a session
type RecentSource interface {
	RecentDownloads(sessionID string, limit int) ([]models.RecentDownload, error)
}

// recentLimit is how many recent downloads a snapshot carries
const recentLimit = 10

// Aggregator builds stats snapshots. Counters come from memory, the recent list from the artifact index.
type Aggregator struct {
	active   ActiveCounter
	sessions SessionCounter
	ledger   *Ledger
	recent   RecentSource
	logger   *slog.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(active ActiveCounter, sessions SessionCounter, ledger *Ledger, recent RecentSource) *Aggregator {
	return &Aggregator{
		active:   active,
		sessions: sessions,
		ledger:   ledger,
		recent:   recent,
		logger:   slog.Default(),
	}
}

// Snapshot returns the stats visible to a session
func (a *Aggregator) Snapshot(sessionID string) models.Stats {
	count, totalBytes := a.ledger.Totals()

	recent, err := a.recent.RecentDownloads(sessionID, recentLimit)
	if err != nil {
		a.logger.Warn("Failed to list recent downloads", "session_id", sessionID, "error", err)
	}
	if recent == nil {
		recent = []models.RecentDownload{}
	}

	return models.Stats{
		ActiveDownloads:  a.active.ActiveCount(),
		SessionDownloads: a.sessions.CompletedDownloads(sessionID),
		GlobalDownloads:  count,
		TotalSizeMB:      models.BytesToMB(totalBytes),
		RecentDownloads:  recent,
	}
}

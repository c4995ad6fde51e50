package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task names
const (
	TaskPruneJobs      = "prune-jobs"
	TaskPruneSessions  = "prune-sessions"
	TaskPruneArtifacts = "prune-artifacts"
	TaskPruneLedger    = "prune-ledger"
)

// orphanGrace keeps freshly created artifact directories out of the orphan sweep
const orphanGrace = time.Hour

// JobPruner drops finished jobs from the progress store
type JobPruner interface {
	Prune(retention time.Duration) int
	DropSessions(ids ...string) int
}

// SessionPruner expires idle sessions
type SessionPruner interface {
	PruneIdle(olderThan time.Duration) ([]string, error)
}

// ArtifactPruner expires stored artifacts
type ArtifactPruner interface {
	DeleteOlderThan(retention time.Duration) (int, error)
	SweepOrphans(minAge time.Duration) (int, error)
}

// LedgerPruner trims the completed downloads history; the ledger totals are kept
type LedgerPruner interface {
	DeleteOldCompletedDownloads(olderThan time.Duration) (int64, error)
}

// Retention holds how long each kind of state is kept
type Retention struct {
	Jobs      time.Duration
	Sessions  time.Duration
	Artifacts time.Duration
	Ledger    time.Duration
}

// Dependencies are the stores the default tasks prune
type Dependencies struct {
	Jobs      JobPruner
	Sessions  SessionPruner
	Artifacts ArtifactPruner
	Ledger    LedgerPruner
}

// RegisterDefaults registers the housekeeping tasks on s, all running every interval
func RegisterDefaults(s *Scheduler, interval time.Duration, deps Dependencies, retention Retention) error {
	tasks := []Task{
		{Name: TaskPruneJobs, Interval: interval, Func: PruneJobs(deps.Jobs, retention.Jobs)},
		{Name: TaskPruneSessions, Interval: interval, Func: PruneSessions(deps.Sessions, deps.Jobs, retention.Sessions)},
		{Name: TaskPruneArtifacts, Interval: interval, Func: PruneArtifacts(deps.Artifacts, retention.Artifacts), RunOnStart: true},
		{Name: TaskPruneLedger, Interval: interval, Func: PruneLedger(deps.Ledger, retention.Ledger), RunOnStart: true},
	}
	for _, task := range tasks {
		if err := s.Register(task); err != nil {
			return err
		}
	}
	return nil
}

// PruneJobs removes terminal jobs that finished more than retention ago
func PruneJobs(jobs JobPruner, retention time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		if removed := jobs.Prune(retention); removed > 0 {
			slog.Info("Pruned finished jobs", "count", removed)
		}
		return nil
	}
}

// PruneSessions expires idle sessions and forgets the finished jobs they owned
func PruneSessions(sessions SessionPruner, jobs JobPruner, ttl time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		ids, err := sessions.PruneIdle(ttl)
		if err != nil {
			return fmt.Errorf("failed to prune idle sessions: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		dropped := jobs.DropSessions(ids...)
		slog.Info("Expired idle sessions", "sessions", len(ids), "jobs_dropped", dropped)
		return nil
	}
}

// PruneArtifacts deletes artifacts past their retention and sweeps unindexed leftovers
func PruneArtifacts(artifacts ArtifactPruner, retention time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		if _, err := artifacts.DeleteOlderThan(retention); err != nil {
			return fmt.Errorf("failed to delete expired artifacts: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := artifacts.SweepOrphans(orphanGrace); err != nil {
			return fmt.Errorf("failed to sweep orphaned artifacts: %w", err)
		}
		return nil
	}
}

// PruneLedger trims completed download rows older than retention
func PruneLedger(ledger LedgerPruner, retention time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		deleted, err := ledger.DeleteOldCompletedDownloads(retention)
		if err != nil {
			return fmt.Errorf("failed to prune completed downloads: %w", err)
		}
		if deleted > 0 {
			slog.Info("Pruned completed download history", "count", deleted)
		}
		return nil
	}
}

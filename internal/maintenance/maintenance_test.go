package maintenance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu        sync.Mutex
	retention time.Duration
	dropped   []string
}

func (f *fakeJobs) Prune(retention time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = retention
	return 3
}

func (f *fakeJobs) DropSessions(ids ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, ids...)
	return len(ids) * 2
}

type fakeSessions struct {
	ids []string
	err error
}

func (f *fakeSessions) PruneIdle(time.Duration) ([]string, error) {
	return f.ids, f.err
}

type fakeArtifacts struct {
	deleteErr error
	sweepErr  error
	swept     bool
}

func (f *fakeArtifacts) DeleteOlderThan(time.Duration) (int, error) {
	return 1, f.deleteErr
}

func (f *fakeArtifacts) SweepOrphans(time.Duration) (int, error) {
	f.swept = true
	return 0, f.sweepErr
}

type fakeLedger struct {
	olderThan time.Duration
	err       error
}

func (f *fakeLedger) DeleteOldCompletedDownloads(olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, f.err
}

func TestPruneJobs(t *testing.T) {
	jobs := &fakeJobs{}
	require.NoError(t, PruneJobs(jobs, time.Hour)(context.Background()))
	require.Equal(t, time.Hour, jobs.retention)
}

func TestPruneSessions(t *testing.T) {
	tests := []struct {
		name        string
		sessions    *fakeSessions
		wantErr     bool
		wantDropped []string
	}{
		{
			name:        "drops jobs of expired sessions",
			sessions:    &fakeSessions{ids: []string{"a", "b"}},
			wantDropped: []string{"a", "b"},
		},
		{
			name:     "nothing expired",
			sessions: &fakeSessions{},
		},
		{
			name:     "store failure",
			sessions: &fakeSessions{err: errors.New("bolt closed")},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &fakeJobs{}
			err := PruneSessions(tt.sessions, jobs, time.Hour)(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantDropped, jobs.dropped)
		})
	}
}

func TestPruneArtifacts(t *testing.T) {
	artifacts := &fakeArtifacts{}
	require.NoError(t, PruneArtifacts(artifacts, time.Hour)(context.Background()))
	require.True(t, artifacts.swept)

	artifacts = &fakeArtifacts{deleteErr: errors.New("disk gone")}
	err := PruneArtifacts(artifacts, time.Hour)(context.Background())
	require.ErrorContains(t, err, "disk gone")
	require.False(t, artifacts.swept)

	artifacts = &fakeArtifacts{sweepErr: errors.New("permission denied")}
	require.Error(t, PruneArtifacts(artifacts, time.Hour)(context.Background()))
}

func TestPruneLedger(t *testing.T) {
	ledger := &fakeLedger{}
	require.NoError(t, PruneLedger(ledger, 48*time.Hour)(context.Background()))
	require.Equal(t, 48*time.Hour, ledger.olderThan)

	ledger.err = errors.New("locked")
	require.Error(t, PruneLedger(ledger, time.Hour)(context.Background()))
}

func TestScheduler_RegisterAndRunSynchronously(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Stop()

	var runs atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:     "count",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.Error(t, s.Register(Task{Name: "count", Interval: time.Hour, Func: func(context.Context) error { return nil }}))
	require.Error(t, s.Register(Task{Name: "bad", Func: func(context.Context) error { return nil }}))

	require.NoError(t, s.runNow("count"))
	require.Equal(t, int32(1), runs.Load())
	require.Error(t, s.runNow("missing"))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	require.Equal(t, "count", tasks[0].Name)
	require.NotNil(t, tasks[0].LastRun)
	require.Empty(t, tasks[0].LastErr)
}

func TestScheduler_RecordsFailures(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Register(Task{
		Name:     "broken",
		Interval: time.Hour,
		Func:     func(context.Context) error { return errors.New("boom") },
	}))

	require.EqualError(t, s.runNow("broken"), "boom")
	require.Equal(t, "boom", s.Tasks()[0].LastErr)
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestRegisterDefaults(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Stop()

	jobs := &fakeJobs{}
	ledger := &fakeLedger{}
	deps := Dependencies{
		Jobs:      jobs,
		Sessions:  &fakeSessions{ids: []string{"gone"}},
		Artifacts: &fakeArtifacts{},
		Ledger:    ledger,
	}
	retention := Retention{Jobs: time.Hour, Sessions: 24 * time.Hour, Artifacts: 24 * time.Hour, Ledger: 1440 * time.Hour}
	require.NoError(t, RegisterDefaults(s, time.Minute, deps, retention))
	tasks := s.Tasks()
	require.Len(t, tasks, 4)
	require.Equal(t, TaskPruneArtifacts, tasks[0].Name)
	require.Equal(t, TaskPruneSessions, tasks[3].Name)

	for _, name := range []string{TaskPruneJobs, TaskPruneSessions, TaskPruneArtifacts, TaskPruneLedger} {
		require.NoError(t, s.runNow(name))
	}
	require.Equal(t, time.Hour, jobs.retention)
	require.Equal(t, []string{"gone"}, jobs.dropped)
	require.Equal(t, 1440*time.Hour, ledger.olderThan)
}

func TestScheduler_RunOnStart(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:       "startup",
		Interval:   time.Hour,
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

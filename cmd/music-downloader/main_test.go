package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"music-downloader/internal/config"
	"music-downloader/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DOWNLOADS_PATH", t.TempDir())
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("SERVER_PORT", "0")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level defaults to info", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				setupLogging(tt.level)
			})
		})
	}
}

func TestRun(t *testing.T) {
	t.Setenv("DOWNLOADS_PATH", "relative/path")

	err := run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load configuration")
}

func TestRunDatabaseError(t *testing.T) {
	t.Setenv("DOWNLOADS_PATH", t.TempDir())
	t.Setenv("DATABASE_PATH", "/invalid/path/test.db")

	err := run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to initialize database")
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionDBPath = filepath.Join(t.TempDir(), "sessions.db")

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.scheduler)
	require.NotNil(t, a.hub)
	require.NotNil(t, a.server)
	require.NotNil(t, a.maintenance)
	require.Len(t, a.maintenance.Tasks(), 4)
	require.DirExists(t, cfg.ArtifactsPath())
}

func TestRunServerShutdown(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, a)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("runServer did not return after cancellation")
	}
	require.Equal(t, 0, a.scheduler.RunningJobs())
}

func TestRunServerStartError(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServerPort = "999999"

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.close()

	err = runServer(context.Background(), a)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server failed to start")
}

func TestNewSessionStore(t *testing.T) {
	store, err := newSessionStore("")
	require.NoError(t, err)
	require.IsType(t, &session.MemoryStore{}, store)
	require.NoError(t, store.Close())

	store, err = newSessionStore(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	require.IsType(t, &session.BoltStore{}, store)
	require.NoError(t, store.Close())
}

func TestNewResolver(t *testing.T) {
	router := newResolver(testConfig(t))
	require.NotNil(t, router)

	_, err := router.Resolve(context.Background(), "https://example.com/song")
	require.Error(t, err)
}

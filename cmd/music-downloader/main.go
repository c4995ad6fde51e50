package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"music-downloader/internal/artifact"
	"music-downloader/internal/config"
	"music-downloader/internal/database"
	"music-downloader/internal/downloader"
	"music-downloader/internal/maintenance"
	"music-downloader/internal/progress"
	"music-downloader/internal/quota"
	"music-downloader/internal/resolver"
	"music-downloader/internal/resolver/command"
	"music-downloader/internal/resolver/youtube"
	"music-downloader/internal/session"
	"music-downloader/internal/stats"
	"music-downloader/internal/web"
	"music-downloader/internal/web/handlers"
	"music-downloader/internal/websocket"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(cfg.LogLevel)

	slog.Info("Starting Music Downloader", "version", version)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, a)
}

// app holds the wired components of the process
type app struct {
	cfg         *config.Config
	db          *database.DB
	sessions    *session.Registry
	progress    *progress.Store
	scheduler   *downloader.Scheduler
	hub         *websocket.Hub
	maintenance *maintenance.Scheduler
	server      *web.Server
	unsubscribe func()
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: db}

	if err := a.wire(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	store, err := newSessionStore(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	a.sessions, err = session.NewRegistry(store)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	ledger, err := stats.NewLedger(a.db)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	artifacts, err := artifact.NewStore(cfg.ArtifactsPath(), a.db)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	a.progress = progress.NewStore()
	a.hub = websocket.NewHub()
	a.unsubscribe = a.progress.Subscribe(a.hub.Publish)

	router := newResolver(cfg)
	a.scheduler = downloader.NewScheduler(downloader.Config{
		WorkerPoolSize:     cfg.WorkerPoolSize,
		ResolveConcurrency: cfg.ResolveConcurrency,
		MaxRetries:         cfg.SongMaxRetries,
		RetryBaseDelay:     cfg.RetryBaseDelay,
		SongTimeout:        cfg.SongTimeout,
		ResolveTimeout:     cfg.ResolveTimeout,
		WorkPath:           cfg.WorkPath(),
	}, downloader.Dependencies{
		Resolver:  router,
		Fetcher:   router,
		Gate:      quota.NewGate(cfg.MaxFreeDownloads, cfg.DownloadPassword),
		Progress:  a.progress,
		Artifacts: artifacts,
		Ledger:    ledger,
		Sessions:  a.sessions,
	})

	a.maintenance, err = maintenance.New()
	if err != nil {
		return err
	}
	err = maintenance.RegisterDefaults(a.maintenance, cfg.MaintenanceInterval, maintenance.Dependencies{
		Jobs:      a.progress,
		Sessions:  a.sessions,
		Artifacts: artifacts,
		Ledger:    a.db,
	}, maintenance.Retention{
		Jobs:      cfg.JobRetention,
		Sessions:  cfg.SessionTTL,
		Artifacts: cfg.ArtifactRetention,
		Ledger:    cfg.LedgerRetention,
	})
	if err != nil {
		return fmt.Errorf("failed to register maintenance tasks: %w", err)
	}

	h := handlers.NewHandlers(handlers.Dependencies{
		Scheduler:        a.scheduler,
		Status:           a.progress,
		Stats:            stats.NewAggregator(a.progress, a.sessions, ledger, artifacts),
		Artifacts:        artifacts,
		Pusher:           a.hub,
		Sessions:         a.sessions,
		Maintenance:      a.maintenance,
		MaxFreeDownloads: cfg.MaxFreeDownloads,
	})
	a.server = web.NewServer(cfg, h, a.sessions)

	return nil
}

// close releases storage; components must already be stopped
func (a *app) close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

func runServer(ctx context.Context, a *app) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	if err := a.scheduler.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start download scheduler: %w", err)
	}
	a.maintenance.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Start()
	}()

	var startErr error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			startErr = fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var shutdownErr error
	if startErr == nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}
	}

	a.scheduler.Stop()
	if err := a.maintenance.Stop(); err != nil {
		slog.Error("Failed to stop maintenance scheduler", "error", err)
	}
	stopHub()

	if startErr != nil {
		return startErr
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	slog.Info("Server shutdown complete")
	return nil
}

func newSessionStore(path string) (session.Store, error) {
	if path == "" {
		return session.NewMemoryStore(), nil
	}
	store, err := session.NewBoltStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return store, nil
}

func newResolver(cfg *config.Config) *resolver.Router {
	return resolver.NewRouter(map[string]resolver.Provider{
		resolver.ProviderYouTube:    youtube.New(cfg.ResolveTimeout),
		resolver.ProviderSoundCloud: command.NewYtDlp(cfg.YtDlpBinary, resolver.ProviderSoundCloud, nil),
		resolver.ProviderSpotify:    command.NewSpotDL(cfg.SpotDLBinary, nil),
	})
}

// setupLogging configures structured logging based on the log level
func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

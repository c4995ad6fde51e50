// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	ServerPort    string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"music.db"`
	SessionDBPath string `env:"SESSION_DB_PATH"`
	DownloadsPath string `env:"DOWNLOADS_PATH" envDefault:"/downloads"`

	MaxFreeDownloads int    `env:"MAX_FREE_DOWNLOADS" envDefault:"5"`
	DownloadPassword string `env:"DOWNLOAD_PASSWORD"`

	WorkerPoolSize     int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	ResolveConcurrency int           `env:"RESOLVE_CONCURRENCY" envDefault:"4"`
	SongMaxRetries     int           `env:"SONG_MAX_RETRIES" envDefault:"2"`
	RetryBaseDelay     time.Duration `env:"RETRY_BASE_DELAY" envDefault:"2s"`
	SongTimeout        time.Duration `env:"SONG_TIMEOUT" envDefault:"10m"`
	ResolveTimeout     time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"60s"`

	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	JobRetention      time.Duration `env:"JOB_RETENTION" envDefault:"1h"`
	ArtifactRetention time.Duration `env:"ARTIFACT_RETENTION" envDefault:"24h"`
	LedgerRetention   time.Duration `env:"LEDGER_RETENTION" envDefault:"1440h"`

	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"5m"`

	YtDlpBinary  string `env:"YTDLP_BINARY" envDefault:"yt-dlp"`
	SpotDLBinary string `env:"SPOTDL_BINARY" envDefault:"spotdl"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	logLevel := strings.ToLower(c.LogLevel)
	isValidLevel := false
	for _, level := range validLogLevels {
		if logLevel == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("invalid log level %q, must be one of: %v", c.LogLevel, validLogLevels)
	}

	if c.MaxFreeDownloads < 0 {
		return fmt.Errorf("MAX_FREE_DOWNLOADS cannot be negative, got: %d", c.MaxFreeDownloads)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got: %d", c.WorkerPoolSize)
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be at least 1, got: %d", c.ResolveConcurrency)
	}
	if c.SongMaxRetries < 0 {
		return fmt.Errorf("SONG_MAX_RETRIES cannot be negative, got: %d", c.SongMaxRetries)
	}
	if c.SongTimeout <= 0 {
		return fmt.Errorf("SONG_TIMEOUT must be positive, got: %s", c.SongTimeout)
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got: %s", c.MaintenanceInterval)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive, got %v rps with burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}

	if c.DownloadsPath == "" {
		return fmt.Errorf("DOWNLOADS_PATH cannot be empty")
	}

	cleanPath := filepath.Clean(c.DownloadsPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("DOWNLOADS_PATH must be an absolute path, got: %s", c.DownloadsPath)
	}

	// Check if path exists and is a directory (only if it exists)
	if info, err := os.Stat(cleanPath); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("DOWNLOADS_PATH must be a directory, got file: %s", cleanPath)
		}
	}

	c.DownloadsPath = cleanPath
	c.LogLevel = logLevel

	return nil
}

// WorkPath is where in-flight song files are written
func (c *Config) WorkPath() string {
	return filepath.Join(c.DownloadsPath, "work")
}

// ArtifactsPath is where completed job outputs are kept until retrieval
func (c *Config) ArtifactsPath() string {
	return filepath.Join(c.DownloadsPath, "artifacts")
}

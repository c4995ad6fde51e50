// Package command implements providers that shell out to yt-dlp and spotdl
package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

// Runner executes an external program. onLine, when set, receives every stdout line as it is produced.
//
//go:generate mockgen -source=command.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(line string)) ([]byte, error)
}

// ExecError describes a program that exited unsuccessfully
type ExecError struct {
	Program string
	Stderr  string
	Err     error
}

// Error implements the error interface
func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v: %s", e.Program, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Program, e.Err)
}

// Unwrap returns the underlying cause
func (e *ExecError) Unwrap() error {
	return e.Err
}

// maxStderr bounds how much diagnostic output is kept in an ExecError
const maxStderr = 2048

// ExecRunner runs programs with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(line string)) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Program: name, Err: err}
	}

	var output bytes.Buffer
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		output.WriteString(line)
		output.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}
	// Drain whatever the scanner refused so the process is not blocked on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ExecError{Program: name, Stderr: trimStderr(stderr.String()), Err: err}
	}
	return output.Bytes(), nil
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}

// classify converts a runner error into a DownloadError. Missing binaries and
// restricted content are permanent, other process failures are retried.
func classify(song models.Song, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &resolver.DownloadError{Song: song, Err: err}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &resolver.DownloadError{Song: song, Err: fmt.Errorf("downloader not installed: %w", err)}
	}
	return &resolver.DownloadError{Song: song, Transient: !resolver.IsRestrictedAccess(err.Error()), Err: err}
}

func resolutionError(rawURL string, err error) error {
	reason := "lookup failed"
	switch {
	case errors.Is(err, exec.ErrNotFound):
		reason = "resolver not installed"
	case resolver.IsRestrictedAccess(err.Error()):
		reason = "restricted access"
	}
	return &resolver.ResolutionError{URL: rawURL, Reason: reason, Err: err}
}

// newestFile returns the most recently modified regular file in dir
func newestFile(dir string, extensions ...string) (*resolver.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var (
		best    string
		bestMod time.Time
		size    int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = entry.Name()
			bestMod = info.ModTime()
			size = info.Size()
		}
	}

	if best == "" {
		return nil, errors.New("no output file produced")
	}
	return &resolver.File{Path: filepath.Join(dir, best), Size: size}, nil
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

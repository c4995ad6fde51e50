package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

var progressPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// YtDlp resolves and downloads through the yt-dlp command line tool
type YtDlp struct {
	binary   string
	provider string
	runner   Runner
	logger   *slog.Logger
}

// NewYtDlp creates a yt-dlp backed provider that labels its songs with provider
func NewYtDlp(binary, provider string, runner Runner) *YtDlp {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &YtDlp{
		binary:   binary,
		provider: provider,
		runner:   runner,
		logger:   slog.Default(),
	}
}

type ytDlpEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

type ytDlpInfo struct {
	ytDlpEntry
	Type    string       `json:"_type"`
	Entries []ytDlpEntry `json:"entries"`
}

// Resolve implements resolver.Resolver
func (y *YtDlp) Resolve(ctx context.Context, rawURL string) ([]models.Song, error) {
	args := []string{"--flat-playlist", "--dump-single-json", "--no-warnings", rawURL}
	output, err := y.runner.Run(ctx, y.binary, args, nil)
	if err != nil {
		return nil, resolutionError(rawURL, err)
	}

	var info ytDlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, &resolver.ResolutionError{URL: rawURL, Reason: "unreadable metadata", Err: err}
	}

	if info.Type != "playlist" {
		return []models.Song{y.song(info.ytDlpEntry, rawURL)}, nil
	}

	songs := make([]models.Song, 0, len(info.Entries))
	for _, entry := range info.Entries {
		if entry.ID == "" && entry.URL == "" && entry.WebpageURL == "" {
			continue
		}
		songs = append(songs, y.song(entry, ""))
	}

	y.logger.Debug("Playlist resolved", "url", rawURL, "songs", len(songs))
	return songs, nil
}

func (y *YtDlp) song(entry ytDlpEntry, fallbackURL string) models.Song {
	songURL := entry.WebpageURL
	if songURL == "" {
		songURL = entry.URL
	}
	if songURL == "" {
		songURL = fallbackURL
	}
	title := entry.Title
	if title == "" {
		title = entry.ID
	}
	return models.Song{
		Provider: y.provider,
		ID:       entry.ID,
		Title:    title,
		URL:      songURL,
	}
}

// Fetch implements resolver.Fetcher
func (y *YtDlp) Fetch(ctx context.Context, song models.Song, destDir string, onProgress func(fraction float64)) (*resolver.File, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	args := []string{
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--embed-thumbnail",
		"--add-metadata",
		"--no-playlist",
		"--no-mtime",
		"--newline",
		"-o", filepath.Join(destDir, "%(title)s.%(ext)s"),
		song.URL,
	}

	onLine := func(line string) {
		if fraction, ok := parseProgress(line); ok && onProgress != nil {
			onProgress(fraction)
		}
	}

	if _, err := y.runner.Run(ctx, y.binary, args, onLine); err != nil {
		return nil, classify(song, err)
	}

	file, err := newestFile(destDir, ".mp3")
	if err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: err}
	}

	y.logger.Debug("Song downloaded", "song", song.Title, "path", file.Path, "size", humanize.Bytes(uint64(file.Size)))
	return file, nil
}

// parseProgress extracts the completion fraction from a yt-dlp "[download]  42.0%" line
func parseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if percent > 100 {
		percent = 100
	}
	return percent / 100, true
}

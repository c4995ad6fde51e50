package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

// SpotDL resolves and downloads Spotify links through the spotdl command line tool
type SpotDL struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// NewSpotDL creates a spotdl backed provider
func NewSpotDL(binary string, runner Runner) *SpotDL {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &SpotDL{
		binary: binary,
		runner: runner,
		logger: slog.Default(),
	}
}

// spotDLSong is one entry of a .spotdl save file
type spotDLSong struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Artist  string   `json:"artist"`
	SongID  string   `json:"song_id"`
	URL     string   `json:"url"`
}

func (s spotDLSong) title() string {
	artist := s.Artist
	if artist == "" && len(s.Artists) > 0 {
		artist = s.Artists[0]
	}
	if artist == "" {
		return s.Name
	}
	return artist + " - " + s.Name
}

// Resolve implements resolver.Resolver
func (s *SpotDL) Resolve(ctx context.Context, rawURL string) ([]models.Song, error) {
	tmpDir, err := os.MkdirTemp("", "spotdl-save-")
	if err != nil {
		return nil, &resolver.ResolutionError{URL: rawURL, Reason: "lookup failed", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	saveFile := filepath.Join(tmpDir, "songs.spotdl")
	args := []string{"save", rawURL, "--save-file", saveFile}
	if _, err := s.runner.Run(ctx, s.binary, args, nil); err != nil {
		return nil, resolutionError(rawURL, err)
	}

	data, err := os.ReadFile(saveFile)
	if err != nil {
		return nil, &resolver.ResolutionError{URL: rawURL, Reason: "lookup failed", Err: fmt.Errorf("reading save file: %w", err)}
	}

	var entries []spotDLSong
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &resolver.ResolutionError{URL: rawURL, Reason: "unreadable metadata", Err: err}
	}

	songs := make([]models.Song, 0, len(entries))
	for _, entry := range entries {
		if entry.URL == "" {
			continue
		}
		songs = append(songs, models.Song{
			Provider: resolver.ProviderSpotify,
			ID:       entry.SongID,
			Title:    strings.TrimSpace(entry.title()),
			URL:      entry.URL,
		})
	}

	s.logger.Debug("Spotify URL resolved", "url", rawURL, "songs", len(songs))
	return songs, nil
}

// Fetch implements resolver.Fetcher. spotdl prints no usable percentage, so
// progress only moves when the song is done.
func (s *SpotDL) Fetch(ctx context.Context, song models.Song, destDir string, onProgress func(fraction float64)) (*resolver.File, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	args := []string{
		"download", song.URL,
		"--output", destDir,
		"--format", "mp3",
		"--bitrate", "320k",
	}
	if _, err := s.runner.Run(ctx, s.binary, args, nil); err != nil {
		return nil, classify(song, err)
	}

	file, err := newestFile(destDir, ".mp3")
	if err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: err}
	}
	if onProgress != nil {
		onProgress(1)
	}

	s.logger.Debug("Song downloaded", "song", song.Title, "path", file.Path, "size", humanize.Bytes(uint64(file.Size)))
	return file, nil
}

// Package resolver turns media URLs into songs and songs into audio files
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"music-downloader/pkg/models"
)

// Provider names used in models.Song.Provider
const (
	ProviderYouTube    = "youtube"
	ProviderSpotify    = "spotify"
	ProviderSoundCloud = "soundcloud"
)

// Resolver expands a URL into the songs it refers to without downloading anything
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) ([]models.Song, error)
}

// Fetcher produces the audio file for a single song inside destDir
type Fetcher interface {
	Fetch(ctx context.Context, song models.Song, destDir string, onProgress func(fraction float64)) (*File, error)
}

// Provider is a concrete media backend that can both resolve and fetch
type Provider interface {
	Resolver
	Fetcher
}

// File is an audio file produced by a Fetcher
type File struct {
	Path string
	Size int64
}

// Router dispatches URLs and songs to the provider that owns them
type Router struct {
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRouter creates a router over the given providers keyed by provider name
func NewRouter(providers map[string]Provider) *Router {
	return &Router{
		providers: providers,
		logger:    slog.Default(),
	}
}

// Resolve implements Resolver
func (r *Router) Resolve(ctx context.Context, rawURL string) ([]models.Song, error) {
	name, err := ProviderFor(rawURL)
	if err != nil {
		return nil, err
	}

	provider, ok := r.providers[name]
	if !ok {
		return nil, &ResolutionError{URL: rawURL, Reason: fmt.Sprintf("no %s provider configured", name)}
	}

	songs, err := provider.Resolve(ctx, rawURL)
	if err != nil {
		if _, ok := AsResolutionError(err); ok {
			return nil, err
		}
		return nil, &ResolutionError{URL: rawURL, Reason: "lookup failed", Err: err}
	}

	if len(songs) == 0 {
		return nil, &ResolutionError{URL: rawURL, Reason: "no songs found"}
	}

	for i := range songs {
		if songs[i].Provider == "" {
			songs[i].Provider = name
		}
	}

	r.logger.Debug("URL resolved", "url", rawURL, "provider", name, "songs", len(songs))
	return songs, nil
}

// Fetch implements Fetcher
func (r *Router) Fetch(ctx context.Context, song models.Song, destDir string, onProgress func(fraction float64)) (*File, error) {
	provider, ok := r.providers[song.Provider]
	if !ok {
		return nil, &DownloadError{Song: song, Err: fmt.Errorf("no %q provider configured", song.Provider)}
	}
	return provider.Fetch(ctx, song, destDir, onProgress)
}

// ProviderFor returns the provider name responsible for a URL
func ProviderFor(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", &ResolutionError{URL: rawURL, Reason: "invalid URL: empty"}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", &ResolutionError{URL: rawURL, Reason: "invalid URL", Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &ResolutionError{URL: rawURL, Reason: fmt.Sprintf("invalid URL: unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return "", &ResolutionError{URL: rawURL, Reason: "invalid URL: missing host"}
	}

	host := strings.ToLower(parsed.Hostname())
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return ProviderYouTube, nil
	case "open.spotify.com":
		return ProviderSpotify, nil
	case "soundcloud.com", "www.soundcloud.com", "m.soundcloud.com":
		return ProviderSoundCloud, nil
	}

	return "", &ResolutionError{URL: rawURL, Reason: fmt.Sprintf("unsupported provider %q", host)}
}

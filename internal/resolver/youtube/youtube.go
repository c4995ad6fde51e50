// Package youtube resolves and fetches YouTube audio with the kkdai/youtube client
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

const watchURLTemplate = "https://www.youtube.com/watch?v=%s"

// Provider implements resolver.Provider for YouTube and YouTube Music
type Provider struct {
	client *youtube.Client
	logger *slog.Logger
}

// New creates a YouTube provider. A request fails when no response headers arrive
// within responseTimeout; reading a body is bounded only by the caller's context.
func New(responseTimeout time.Duration) *Provider {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = responseTimeout

	return &Provider{
		client: &youtube.Client{
			HTTPClient: &http.Client{Transport: transport},
		},
		logger: slog.Default(),
	}
}

// Resolve implements resolver.Resolver
func (p *Provider) Resolve(ctx context.Context, rawURL string) ([]models.Song, error) {
	if isPlaylistURL(rawURL) {
		playlist, err := p.client.GetPlaylistContext(ctx, rawURL)
		if err != nil {
			return nil, resolutionError(rawURL, "fetching playlist", err)
		}

		songs := make([]models.Song, 0, len(playlist.Videos))
		for _, entry := range playlist.Videos {
			if entry == nil || entry.ID == "" {
				continue
			}
			title := entry.Title
			if title == "" {
				title = entry.ID
			}
			songs = append(songs, models.Song{
				Provider: resolver.ProviderYouTube,
				ID:       entry.ID,
				Title:    title,
				URL:      fmt.Sprintf(watchURLTemplate, entry.ID),
			})
		}

		p.logger.Debug("Playlist resolved", "url", rawURL, "playlist_id", playlist.ID, "songs", len(songs))
		return songs, nil
	}

	video, err := p.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, resolutionError(rawURL, "fetching video", err)
	}

	return []models.Song{{
		Provider: resolver.ProviderYouTube,
		ID:       video.ID,
		Title:    video.Title,
		URL:      fmt.Sprintf(watchURLTemplate, video.ID),
	}}, nil
}

// Fetch implements resolver.Fetcher
func (p *Provider) Fetch(ctx context.Context, song models.Song, destDir string, onProgress func(fraction float64)) (*resolver.File, error) {
	video, err := p.client.GetVideoContext(ctx, song.URL)
	if err != nil {
		return nil, downloadError(song, fmt.Errorf("fetching video: %w", err))
	}

	format, err := pickAudioFormat(video.Formats)
	if err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: err}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	title := video.Title
	if title == "" {
		title = song.Title
	}
	outputPath := filepath.Join(destDir, resolver.SanitizeFilename(title)+extensionFor(format.MimeType))

	stream, size, err := p.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, downloadError(song, fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, &resolver.DownloadError{Song: song, Err: fmt.Errorf("opening output file: %w", err)}
	}

	written, err := io.Copy(file, &progressReader{reader: stream, total: size, onProgress: onProgress})
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, downloadError(song, fmt.Errorf("download failed: %w", err))
	}

	p.logger.Debug("Song downloaded", "song_id", song.ID, "path", outputPath, "size", humanize.Bytes(uint64(written)))
	return &resolver.File{Path: outputPath, Size: written}, nil
}

// isPlaylistURL treats /playlist pages and list= links without a video id as playlists
func isPlaylistURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	query := parsed.Query()
	if query.Get("list") == "" {
		return false
	}
	return parsed.Path == "/playlist" || query.Get("v") == ""
}

// pickAudioFormat selects the highest bitrate audio-only format
func pickAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := make([]*youtube.Format, 0, len(formats))
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "audio/") {
			candidates = append(candidates, &formats[i])
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no audio formats available")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return bitrate(candidates[i]) > bitrate(candidates[j])
	})
	return candidates[0], nil
}

func bitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/mp4"):
		return ".m4a"
	case strings.HasPrefix(mimeType, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mimeType, "audio/mpeg"):
		return ".mp3"
	default:
		return ".audio"
	}
}

func resolutionError(rawURL, stage string, err error) error {
	reason := stage
	if isPermanent(err) {
		reason = stage + ": restricted access"
	}
	return &resolver.ResolutionError{URL: rawURL, Reason: reason, Err: err}
}

func downloadError(song models.Song, err error) error {
	return &resolver.DownloadError{Song: song, Transient: !isPermanent(err) && isNetwork(err), Err: err}
}

func isPermanent(err error) bool {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return true
	}

	var playErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &playErr) {
		return true
	}
	return resolver.IsRestrictedAccess(err.Error())
}

func isNetwork(err error) bool {
	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		code := int(statusErr)
		return code == http.StatusForbidden || code == http.StatusTooManyRequests || code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// progressReader reports the fraction of bytes read so far
type progressReader struct {
	reader     io.Reader
	total      int64
	read       int64
	onProgress func(fraction float64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.onProgress != nil && r.total > 0 {
			fraction := float64(r.read) / float64(r.total)
			if fraction > 1 {
				fraction = 1
			}
			r.onProgress(fraction)
		}
	}
	return n, err
}

package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"music-downloader/internal/resolver"
	"music-downloader/internal/resolver/command/mocks"
	"music-downloader/pkg/models"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line   string
		want   float64
		wantOK bool
	}{
		{"[download]  42.0% of 3.45MiB at 1.2MiB/s ETA 00:02", 0.42, true},
		{"[download] 100% of 3.45MiB in 00:03", 1.0, true},
		{"[download]   0.1% of ~5.00MiB", 0.001, true},
		{"[download] Destination: /tmp/song.webm", 0, false},
		{"[ExtractAudio] Destination: /tmp/song.mp3", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseProgress(tt.line)
			require.Equal(t, tt.wantOK, ok)
			require.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestYtDlp_ResolveSingle(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	provider := NewYtDlp("yt-dlp", resolver.ProviderSoundCloud, runner)

	url := "https://soundcloud.com/artist/track"
	runner.EXPECT().
		Run(gomock.Any(), "yt-dlp", []string{"--flat-playlist", "--dump-single-json", "--no-warnings", url}, gomock.Nil()).
		Return([]byte(`{"_type":"video","id":"123","title":"Track","webpage_url":"https://soundcloud.com/artist/track"}`), nil)

	songs, err := provider.Resolve(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, []models.Song{{
		Provider: resolver.ProviderSoundCloud,
		ID:       "123",
		Title:    "Track",
		URL:      url,
	}}, songs)
}

func TestYtDlp_ResolvePlaylist(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	provider := NewYtDlp("yt-dlp", resolver.ProviderSoundCloud, runner)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(`{
		"_type": "playlist",
		"id": "set",
		"entries": [
			{"id": "1", "title": "One", "url": "https://soundcloud.com/a/one"},
			{"id": "2", "url": "https://soundcloud.com/a/two"},
			{}
		]
	}`), nil)

	songs, err := provider.Resolve(context.Background(), "https://soundcloud.com/a/sets/set")
	require.NoError(t, err)
	require.Len(t, songs, 2)
	require.Equal(t, "One", songs[0].Title)
	require.Equal(t, "2", songs[1].Title)
	require.Equal(t, "https://soundcloud.com/a/two", songs[1].URL)
}

func TestYtDlp_ResolveErrors(t *testing.T) {
	tests := []struct {
		name       string
		output     []byte
		err        error
		wantReason string
	}{
		{
			name:       "restricted",
			err:        &ExecError{Program: "yt-dlp", Stderr: "ERROR: This track is private", Err: errors.New("exit status 1")},
			wantReason: "restricted access",
		},
		{
			name:       "missing binary",
			err:        &ExecError{Program: "yt-dlp", Err: exec.ErrNotFound},
			wantReason: "resolver not installed",
		},
		{
			name:       "network",
			err:        &ExecError{Program: "yt-dlp", Stderr: "connection reset", Err: errors.New("exit status 1")},
			wantReason: "lookup failed",
		},
		{
			name:       "garbage output",
			output:     []byte("not json"),
			wantReason: "unreadable metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)
			provider := NewYtDlp("yt-dlp", resolver.ProviderSoundCloud, runner)

			runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.output, tt.err)

			_, err := provider.Resolve(context.Background(), "https://soundcloud.com/a/b")
			resErr, ok := resolver.AsResolutionError(err)
			require.True(t, ok)
			require.Equal(t, tt.wantReason, resErr.Reason)
		})
	}
}

func TestYtDlp_Fetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	provider := NewYtDlp("yt-dlp", resolver.ProviderSoundCloud, runner)
	destDir := filepath.Join(t.TempDir(), "song-0")
	song := models.Song{Provider: resolver.ProviderSoundCloud, ID: "1", Title: "Track", URL: "https://soundcloud.com/a/track"}

	runner.EXPECT().
		Run(gomock.Any(), "yt-dlp", gomock.Any(), gomock.Not(gomock.Nil())).
		DoAndReturn(func(_ context.Context, _ string, args []string, onLine func(string)) ([]byte, error) {
			require.Contains(t, args, "--extract-audio")
			require.Contains(t, args, filepath.Join(destDir, "%(title)s.%(ext)s"))
			require.Equal(t, song.URL, args[len(args)-1])

			onLine("[download] Destination: Track.webm")
			onLine("[download]  50.0% of 1.00MiB")
			onLine("[download] 100% of 1.00MiB")
			require.NoError(t, os.WriteFile(filepath.Join(destDir, "Track.mp3"), []byte("audio"), 0o644))
			return nil, nil
		})

	var fractions []float64
	file, err := provider.Fetch(context.Background(), song, destDir, func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(destDir, "Track.mp3"), file.Path)
	require.Equal(t, int64(5), file.Size)
	require.Equal(t, []float64{0.5, 1.0}, fractions)
}

func TestYtDlp_FetchErrors(t *testing.T) {
	song := models.Song{Provider: resolver.ProviderSoundCloud, Title: "Track", URL: "https://soundcloud.com/a/track"}

	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"network failure", &ExecError{Program: "yt-dlp", Stderr: "HTTP Error 503", Err: errors.New("exit status 1")}, true},
		{"copyright", &ExecError{Program: "yt-dlp", Stderr: "blocked on copyright grounds", Err: errors.New("exit status 1")}, false},
		{"missing binary", exec.ErrNotFound, false},
		{"timeout", context.DeadlineExceeded, false},
		{"no output", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)
			provider := NewYtDlp("yt-dlp", resolver.ProviderSoundCloud, runner)

			runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)

			_, err := provider.Fetch(context.Background(), song, t.TempDir(), nil)
			require.Error(t, err)
			var dlErr *resolver.DownloadError
			require.ErrorAs(t, err, &dlErr)
			require.Equal(t, tt.wantTransient, resolver.IsTransient(err))
		})
	}
}

func TestSpotDL_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	provider := NewSpotDL("spotdl", runner)
	url := "https://open.spotify.com/album/abc"

	runner.EXPECT().
		Run(gomock.Any(), "spotdl", gomock.Any(), gomock.Nil()).
		DoAndReturn(func(_ context.Context, _ string, args []string, _ func(string)) ([]byte, error) {
			require.Equal(t, "save", args[0])
			require.Equal(t, url, args[1])
			require.Equal(t, "--save-file", args[2])
			payload := `[
				{"name": "First", "artists": ["Band"], "song_id": "s1", "url": "https://open.spotify.com/track/s1"},
				{"name": "Second", "artist": "Solo", "song_id": "s2", "url": "https://open.spotify.com/track/s2"},
				{"name": "Broken"}
			]`
			return nil, os.WriteFile(args[3], []byte(payload), 0o644)
		})

	songs, err := provider.Resolve(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	require.Equal(t, "Band - First", songs[0].Title)
	require.Equal(t, "Solo - Second", songs[1].Title)
	require.Equal(t, resolver.ProviderSpotify, songs[1].Provider)
}

func TestSpotDL_Fetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	provider := NewSpotDL("spotdl", runner)
	destDir := t.TempDir()
	song := models.Song{Provider: resolver.ProviderSpotify, ID: "s1", Title: "Band - First", URL: "https://open.spotify.com/track/s1"}

	runner.EXPECT().
		Run(gomock.Any(), "spotdl", []string{"download", song.URL, "--output", destDir, "--format", "mp3", "--bitrate", "320k"}, gomock.Nil()).
		DoAndReturn(func(context.Context, string, []string, func(string)) ([]byte, error) {
			return nil, os.WriteFile(filepath.Join(destDir, "Band - First.mp3"), []byte("mp3data"), 0o644)
		})

	var last float64
	file, err := provider.Fetch(context.Background(), song, destDir, func(f float64) { last = f })
	require.NoError(t, err)
	require.Equal(t, "Band - First.mp3", filepath.Base(file.Path))
	require.Equal(t, 1.0, last)
}

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var lines []string
	output, err := ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo one; echo two"}, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(output))
	require.Equal(t, []string{"one", "two"}, lines)

	_, err = ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo 'Private video' >&2; exit 3"}, nil)
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "Private video", execErr.Stderr)
	require.True(t, resolver.IsRestrictedAccess(err.Error()))
}

func TestNewestFile(t *testing.T) {
	dir := t.TempDir()

	_, err := newestFile(dir, ".mp3")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.MP3"), []byte("abc"), 0o644))

	file, err := newestFile(dir, ".mp3")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "song.MP3"), file.Path)
	require.Equal(t, int64(3), file.Size)
}

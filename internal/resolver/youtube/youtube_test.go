package youtube

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/require"

	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

func TestNew(t *testing.T) {
	p := New(30 * time.Second)
	require.NotNil(t, p)
	require.NotNil(t, p.client)
	require.Zero(t, p.client.HTTPClient.Timeout)

	transport, ok := p.client.HTTPClient.Transport.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, 30*time.Second, transport.ResponseHeaderTimeout)
}

func TestNew_SlowBodyOutlivesResponseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		for i := 0; i < 4; i++ {
			time.Sleep(50 * time.Millisecond)
			fmt.Fprint(w, "chunk")
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	p := New(100 * time.Millisecond)
	resp, err := p.client.HTTPClient.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "chunkchunkchunkchunk", string(body))
}

func TestNew_StalledResponseTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	p := New(50 * time.Millisecond)
	_, err := p.client.HTTPClient.Get(server.URL)
	require.Error(t, err)
}

func TestIsPlaylistURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://youtube.com/watch?v=abc", false},
		{"https://www.youtube.com/playlist?list=PL123", true},
		{"https://music.youtube.com/playlist?list=OLAK5uy", true},
		{"https://www.youtube.com/watch?v=abc&list=PL123", false},
		{"https://youtu.be/abc", false},
		{"https://www.youtube.com/watch?list=PL123", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			require.Equal(t, tt.want, isPlaylistURL(tt.url))
		})
	}
}

func TestPickAudioFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AverageBitrate: 129000},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 150000, AverageBitrate: 140000},
		{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, Bitrate: 60000},
	}

	format, err := pickAudioFormat(formats)
	require.NoError(t, err)
	require.Equal(t, 251, format.ItagNo)

	_, err = pickAudioFormat(youtube.FormatList{{ItagNo: 18, MimeType: "video/mp4"}})
	require.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	require.Equal(t, ".m4a", extensionFor(`audio/mp4; codecs="mp4a.40.2"`))
	require.Equal(t, ".webm", extensionFor(`audio/webm; codecs="opus"`))
	require.Equal(t, ".mp3", extensionFor("audio/mpeg"))
	require.Equal(t, ".audio", extensionFor("audio/ogg"))
}

func TestErrorClassification(t *testing.T) {
	song := models.Song{ID: "abc", Title: "Song"}

	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"private video", youtube.ErrVideoPrivate, false},
		{"login required", fmt.Errorf("fetching video: %w", youtube.ErrLoginRequired), false},
		{"server error", youtube.ErrUnexpectedStatusCode(503), true},
		{"forbidden", youtube.ErrUnexpectedStatusCode(403), true},
		{"not found", youtube.ErrUnexpectedStatusCode(404), false},
		{"truncated stream", io.ErrUnexpectedEOF, true},
		{"unknown", errors.New("something odd"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := downloadError(song, tt.err)
			require.Equal(t, tt.wantTransient, resolver.IsTransient(err))
		})
	}
}

func TestResolutionErrorMarksRestricted(t *testing.T) {
	err := resolutionError("https://youtube.com/watch?v=abc", "fetching video", youtube.ErrVideoPrivate)
	resErr, ok := resolver.AsResolutionError(err)
	require.True(t, ok)
	require.Equal(t, "fetching video: restricted access", resErr.Reason)
	require.ErrorIs(t, err, youtube.ErrVideoPrivate)
}

func TestProgressReader(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var fractions []float64

	reader := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(fraction float64) {
			fractions = append(fractions, fraction)
		},
	}

	buf := make([]byte, 100)
	var total int
	for {
		n, err := reader.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, 1000, total)
	require.Len(t, fractions, 10)
	require.InDelta(t, 1.0, fractions[len(fractions)-1], 0.0001)
	for i := 1; i < len(fractions); i++ {
		require.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"music-downloader/pkg/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.ServeWS(w, r, r.URL.Query().Get("session")); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) (string, JobUpdate) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope struct {
		Type    string    `json:"type"`
		Payload JobUpdate `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	return envelope.Type, envelope.Payload
}

func TestHub_RoutesUpdatesBySession(t *testing.T) {
	hub, server := startHub(t)

	mine := dial(t, server, "session-a")
	other := dial(t, server, "session-b")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(models.DownloadJob{ID: "job-b", SessionID: "session-b", URL: "https://b", Status: models.StatusQueued})
	hub.Publish(models.DownloadJob{ID: "job-a", SessionID: "session-a", URL: "https://a", Status: models.StatusInProgress, Progress: 40})

	msgType, update := readUpdate(t, mine)
	require.Equal(t, MessageJobUpdate, msgType)
	require.Equal(t, "https://a", update.URL)
	require.Equal(t, "job-a", update.Job.ID)
	require.Equal(t, 40.0, update.Job.Progress)
	require.Empty(t, update.Job.SessionID)

	_, update = readUpdate(t, other)
	require.Equal(t, "job-b", update.Job.ID)
}

func TestHub_SessionIDNotSerialized(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "secret-session")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(models.DownloadJob{ID: "job", SessionID: "secret-session", URL: "https://x"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret-session")
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "session-a")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "s")
	}))
	defer server.Close()

	conn := dial(t, server, "s")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(models.DownloadJob{ID: "job", SessionID: "s"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

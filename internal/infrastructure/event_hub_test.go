package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/halftunes/internal/domain"
)

func startHub(t *testing.T) (*EventHub, *httptest.Server) {
	t.Helper()
	hub := NewEventHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, server
}

func TestEventHub_BroadcastsEvents(t *testing.T) {
	hub, server := startHub(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	tr := domain.NewTransfer(domain.NewTrack("Yellow", "Coldplay", "https://a.example.com/yellow.m4a"))
	hub.Notify(domain.Event{Kind: domain.EventUpdated, SourceURL: tr.SourceURL, Transfer: tr.Snapshot()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string       `json:"type"`
		Payload domain.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "transfer:updated", msg.Type)
	assert.Equal(t, "https://a.example.com/yellow.m4a", msg.Payload.SourceURL)
	assert.Equal(t, "Yellow", msg.Payload.Transfer.TrackName)
}

func TestEventHub_UnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventHub_NotifyNeverBlocks(t *testing.T) {
	hub := NewEventHub(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*4; i++ {
			hub.Notify(domain.Event{Kind: domain.EventUpdated, SourceURL: "https://a.example.com/x.m4a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked without a running hub")
	}
}

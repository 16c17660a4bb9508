package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/halftunes/internal/domain"
)

const itunesFixture = `{
  "resultCount": 3,
  "results": [
    {"trackName": "Yellow", "artistName": "Coldplay", "previewUrl": "https://audio.example.com/a/yellow.m4a"},
    {"trackName": "No Preview", "artistName": "Nobody"},
    {"artistName": "Unknown Name", "previewUrl": "https://audio.example.com/b/untitled.m4a"}
  ]
}`

func newSearchTestClient(serverURL string) *ITunesSearchClient {
	config := domain.DefaultConfig().Search
	config.BaseURL = serverURL + "/search"
	config.Timeout = 2 * time.Second
	config.RateLimit = 0
	return NewITunesSearchClient(config, nil)
}

func TestITunesSearchClient_Search(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"media":  q.Get("media"),
			"entity": q.Get("entity"),
			"term":   q.Get("term"),
			"limit":  q.Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(itunesFixture))
	}))
	defer server.Close()

	client := newSearchTestClient(server.URL)
	tracks, err := client.Search(context.Background(), "  cold play ")
	require.NoError(t, err)

	assert.Equal(t, "music", gotQuery["media"])
	assert.Equal(t, "song", gotQuery["entity"])
	assert.Equal(t, "cold play", gotQuery["term"])
	assert.Equal(t, "50", gotQuery["limit"])

	require.Len(t, tracks, 2)
	assert.Equal(t, "Yellow", tracks[0].Name)
	assert.Equal(t, "Coldplay", tracks[0].Artist)
	assert.Equal(t, "https://audio.example.com/a/yellow.m4a", tracks[0].SourceURL)
	assert.Equal(t, "", tracks[1].Name)
	assert.Equal(t, "Unknown Name", tracks[1].Artist)
}

func TestITunesSearchClient_EmptyTerm(t *testing.T) {
	client := newSearchTestClient("http://127.0.0.1:1")
	_, err := client.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestITunesSearchClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newSearchTestClient(server.URL)
	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestITunesSearchClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := newSearchTestClient(server.URL)
	_, err := client.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestITunesSearchClient_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newSearchTestClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Search(ctx, "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/halftunes/api/handlers"
	"github.com/yourusername/halftunes/internal/app"
	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/internal/infrastructure"
)

var previewBody = bytes.Repeat([]byte("preview-audio-"), 512)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"resultCount":2,"results":[
			{"trackName":"First Light","artistName":"The Dawn","previewUrl":"%s/previews/first-light.m4a"},
			{"trackName":"No Preview","artistName":"The Dawn"}
		]}`, srv.URL)
	})
	mux.HandleFunc("/previews/first-light.m4a", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "first-light.m4a", time.Time{}, bytes.NewReader(previewBody))
	})
	t.Cleanup(srv.Close)
	return srv
}

func setupTestRouter(t *testing.T, srv *httptest.Server) (*gin.Engine, *app.SessionManager, *infrastructure.LocalStore) {
	t.Helper()
	store := infrastructure.NewLocalStore(t.TempDir())
	layer := infrastructure.NewHTTPTransferLayer(srv.Client(), t.TempDir(), 1024, nil)
	t.Cleanup(layer.Shutdown)

	manager := app.NewSessionManager(layer, store, nil)
	client := infrastructure.NewITunesSearchClient(domain.SearchConfig{
		BaseURL: srv.URL + "/search",
		Media:   "music",
		Entity:  "song",
		Limit:   10,
		Timeout: 5 * time.Second,
	}, nil)
	searcher := app.NewSearchService(client, manager, store, nil)

	router := SetupRouter(Dependencies{
		Manager:     manager,
		Active:      manager,
		Searcher:    searcher,
		Store:       store,
		MetricsPath: "/metrics",
	})
	gin.SetMode(gin.TestMode)
	return router, manager, store
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_SearchAndDownload(t *testing.T) {
	srv := newCatalogServer(t)
	router, manager, store := setupTestRouter(t, srv)

	w := do(t, router, http.MethodGet, "/api/v1/search?q=dawn", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var search struct {
		Count   int             `json:"count"`
		Results []app.TrackView `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	require.Equal(t, 1, search.Count)
	sourceURL := search.Results[0].SourceURL
	assert.False(t, search.Results[0].Downloaded)

	w = do(t, router, http.MethodPost, "/api/v1/downloads", handlers.TrackRequest{SourceURL: sourceURL})
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		return manager.ActiveCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	w = do(t, router, http.MethodGet, "/api/v1/downloads/lookup?url="+sourceURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lookup handlers.CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lookup))
	assert.True(t, lookup.Downloaded)
	assert.Nil(t, lookup.Transfer)

	path, err := store.PathFor(sourceURL)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, previewBody, data)

	w = do(t, router, http.MethodGet, "/api/v1/search/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	assert.True(t, search.Results[0].Downloaded)
	assert.Equal(t, path, search.Results[0].LocalPath)
}

func TestRouter_HealthMetricsAndNotFound(t *testing.T) {
	srv := newCatalogServer(t)
	router, _, _ := setupTestRouter(t, srv)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_transfers":0`)

	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "halftunes_active_transfers")

	w = do(t, router, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")

	// history routes are not registered without a repository
	w = do(t, router, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodOptions, "/api/v1/downloads", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/pkg/logger"
)

// mockHistoryRepo implements domain.HistoryRepository for testing
type mockHistoryRepo struct {
	mu        sync.Mutex
	entries   []*domain.HistoryEntry
	createErr error
}

func (m *mockHistoryRepo) Create(entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepo) FindAll(filters map[string]interface{}, limit int) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.HistoryEntry(nil), m.entries...), nil
}

func (m *mockHistoryRepo) FindBySourceURL(sourceURL string) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].SourceURL == sourceURL {
			return m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *mockHistoryRepo) GetStats() (*domain.HistoryStats, error) {
	return &domain.HistoryStats{}, nil
}

func (m *mockHistoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestHistoryRecorder_StartStop(t *testing.T) {
	hr := NewHistoryRecorder(&mockHistoryRepo{}, nil, 4)

	require.NoError(t, hr.Start(context.Background()))
	assert.True(t, hr.IsRunning())
	assert.Error(t, hr.Start(context.Background()), "second start must fail")

	require.NoError(t, hr.Stop())
	assert.False(t, hr.IsRunning())
	assert.Error(t, hr.Stop())
}

func TestHistoryRecorder_RecordsTerminalEvents(t *testing.T) {
	repo := &mockHistoryRepo{}
	env := setupManager(t)
	hr := NewHistoryRecorder(repo, nil, 16)
	env.manager.AddObserver(hr)
	require.NoError(t, hr.Start(context.Background()))

	require.True(t, env.manager.Start(trackA))
	h := env.layer.lastFetch().handle
	env.manager.OnProgress(h, 10, 20)
	env.manager.OnCompleted(h, env.writeTemp(t, "h1.part", "data"))

	trackB := domain.NewTrack("B", "", "https://example.com/b.mp3")
	require.True(t, env.manager.Start(trackB))
	env.manager.Cancel(trackB)

	require.NoError(t, hr.Stop())

	require.Equal(t, 2, repo.count())
	entry, err := repo.FindBySourceURL(trackA.SourceURL)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.OutcomeCompleted, entry.Outcome)
	assert.Equal(t, "A", entry.TrackName)
	assert.NotEmpty(t, entry.FilePath)

	entry, err = repo.FindBySourceURL(trackB.SourceURL)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.OutcomeCanceled, entry.Outcome)
}

func TestHistoryRecorder_SkipsProgressOnlyUpdates(t *testing.T) {
	hr := NewHistoryRecorder(&mockHistoryRepo{}, nil, 2)

	tr := domain.NewTransfer(trackA)
	tr.MarkDownloading(domain.Handle{ID: "h1", SourceURL: trackA.SourceURL}, false)
	update := domain.Event{Kind: domain.EventUpdated, SourceURL: trackA.SourceURL, Transfer: tr.Snapshot()}

	hr.Notify(update)
	for i := 0; i < 10; i++ {
		hr.Notify(update)
	}

	assert.Len(t, hr.events, 1)
	assert.Equal(t, int64(0), hr.Dropped())
}

func TestHistoryRecorder_DropsWhenSaturated(t *testing.T) {
	hr := NewHistoryRecorder(&mockHistoryRepo{}, nil, 1)

	for _, url := range []string{"https://e/1.mp3", "https://e/2.mp3", "https://e/3.mp3"} {
		tr := domain.NewTransfer(domain.NewTrack("", "", url))
		hr.Notify(domain.Event{Kind: domain.EventCanceled, SourceURL: url, Transfer: tr.Snapshot(), Removed: true})
	}

	assert.Equal(t, int64(2), hr.Dropped())
}

func TestHistoryRecorder_WritesTransferLog(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "logs")
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: logsDir})
	require.NoError(t, err)

	repo := &mockHistoryRepo{createErr: errors.New("disk full")}
	hr := NewHistoryRecorder(repo, ml, 8)
	require.NoError(t, hr.Start(context.Background()))

	tr := domain.NewTransfer(trackA)
	tr.MarkFailed(domain.ErrorKindNetwork, errors.New("reset"))
	hr.Notify(domain.Event{Kind: domain.EventFailed, SourceURL: trackA.SourceURL, Transfer: tr.Snapshot(), Removed: true, Timestamp: time.Now()})

	require.NoError(t, hr.Stop())
	require.NoError(t, ml.Close())

	reader := logger.NewLogReader(logsDir)
	transfers, err := reader.ReadTodayLogs(logger.CategoryTransfer, 0)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "transfer_failed", transfers[0].Message)
	assert.Equal(t, "network", transfers[0].Fields["error_kind"])

	appErrors, err := reader.ReadTodayLogs(logger.CategoryError, 0)
	require.NoError(t, err)
	require.Len(t, appErrors, 1)

	_, err = os.Stat(logsDir)
	assert.NoError(t, err)
}

func TestEventName(t *testing.T) {
	tr := domain.NewTransfer(trackA)
	tr.MarkDownloading(domain.Handle{ID: "h1", SourceURL: trackA.SourceURL}, false)
	assert.Equal(t, "transfer_started", eventName(domain.Event{Kind: domain.EventUpdated, Transfer: tr.Snapshot()}))

	tr.PauseRequested = true
	assert.Equal(t, "transfer_pause_requested", eventName(domain.Event{Kind: domain.EventUpdated, Transfer: tr.Snapshot()}))

	tr.MarkPaused(nil)
	assert.Equal(t, "transfer_paused", eventName(domain.Event{Kind: domain.EventUpdated, Transfer: tr.Snapshot()}))

	tr.MarkDownloading(domain.Handle{ID: "h2", SourceURL: trackA.SourceURL}, true)
	assert.Equal(t, "transfer_resumed", eventName(domain.Event{Kind: domain.EventUpdated, Transfer: tr.Snapshot()}))

	assert.Equal(t, "transfer_completed", eventName(domain.Event{Kind: domain.EventCompleted}))
}

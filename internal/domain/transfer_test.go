package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTransfer() *Transfer {
	return NewTransfer(NewTrack("Song", "Band", "https://example.com/a.mp3"))
}

func TestNewTransfer(t *testing.T) {
	transfer := newTestTransfer()

	assert.Equal(t, "https://example.com/a.mp3", transfer.SourceURL)
	assert.Equal(t, "Song", transfer.TrackName)
	assert.Equal(t, StatusIdle, transfer.Status)
	assert.Equal(t, 0.0, transfer.Progress)
	assert.Equal(t, int64(-1), transfer.BytesExpected)
	assert.False(t, transfer.HasResumeToken())
}

func TestTransfer_UpdateProgress(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1", SourceURL: transfer.SourceURL}, false)

	transfer.UpdateProgress(50, 200)
	assert.Equal(t, 0.25, transfer.Progress)

	// unknown total leaves progress unchanged
	transfer.UpdateProgress(80, -1)
	assert.Equal(t, 0.25, transfer.Progress)
	assert.Equal(t, int64(80), transfer.BytesReceived)

	transfer.UpdateProgress(300, 200)
	assert.Equal(t, 1.0, transfer.Progress)
}

func TestTransfer_ResumedProgressNeverDrops(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1"}, false)
	transfer.UpdateProgress(60, 100)
	transfer.MarkPaused([]byte("token"))

	transfer.MarkDownloading(Handle{ID: "h2"}, true)
	assert.Equal(t, 0.6, transfer.Progress)

	// a layer reporting only the remaining bytes
	transfer.UpdateProgress(10, 40)
	assert.Equal(t, 0.6, transfer.Progress)

	transfer.UpdateProgress(80, 100)
	assert.Equal(t, 0.8, transfer.Progress)
}

func TestTransfer_FreshRestartResetsProgress(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1"}, false)
	transfer.UpdateProgress(60, 100)
	transfer.MarkPaused(nil)

	transfer.MarkDownloading(Handle{ID: "h2"}, false)

	assert.Equal(t, 0.0, transfer.Progress)
	assert.Equal(t, int64(0), transfer.BytesReceived)
}

func TestTransfer_MarkPaused(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1"}, false)
	transfer.PauseRequested = true

	token := []byte("partial")
	transfer.MarkPaused(token)
	token[0] = 'X'

	assert.Equal(t, StatusPaused, transfer.Status)
	assert.False(t, transfer.PauseRequested)
	assert.True(t, transfer.Handle.IsZero())
	assert.Equal(t, []byte("partial"), transfer.ResumeToken)

	transfer.MarkPaused(nil)
	assert.False(t, transfer.HasResumeToken())
}

func TestTransfer_MarkFailedKeepsProgress(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1"}, false)
	transfer.UpdateProgress(30, 100)

	transfer.MarkFailed(ErrorKindNetwork, errors.New("connection reset"))

	assert.Equal(t, StatusFailed, transfer.Status)
	assert.Equal(t, 0.3, transfer.Progress)
	assert.Equal(t, ErrorKindNetwork, transfer.ErrorKind)
	assert.Equal(t, "connection reset", transfer.ErrorMessage)
	assert.True(t, transfer.Status.IsTerminal())
}

func TestTransfer_MarkCompleted(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkDownloading(Handle{ID: "h1"}, false)

	transfer.MarkCompleted("/library/a.mp3")

	assert.Equal(t, StatusCompleted, transfer.Status)
	assert.Equal(t, 1.0, transfer.Progress)
	assert.Equal(t, "/library/a.mp3", transfer.FilePath)
}

func TestTransfer_SnapshotIsIndependent(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkPaused([]byte("abc"))

	snap := transfer.Snapshot()
	snap.ResumeToken[0] = 'z'
	snap.Status = StatusFailed

	assert.Equal(t, []byte("abc"), transfer.ResumeToken)
	assert.Equal(t, StatusPaused, transfer.Status)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindNone, KindOf(nil))
	assert.Equal(t, ErrorKindFileSystem, KindOf(NewFileSystemError("u", errors.New("disk full"))))
	assert.Equal(t, ErrorKindNetwork, KindOf(errors.New("plain")))

	err := NewNetworkError("https://example.com/a.mp3", errors.New("timeout"))
	assert.Contains(t, err.Error(), "network failure for https://example.com/a.mp3")
	assert.True(t, errors.Is(err, err.Err))
}

func TestNewHistoryEntry(t *testing.T) {
	transfer := newTestTransfer()
	transfer.MarkCompleted("/library/a.mp3")

	entry, ok := NewHistoryEntry(Event{Kind: EventCompleted, SourceURL: transfer.SourceURL, Transfer: transfer.Snapshot()})
	assert.True(t, ok)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, OutcomeCompleted, entry.Outcome)
	assert.Equal(t, "/library/a.mp3", entry.FilePath)
	assert.False(t, entry.FinishedAt.IsZero())

	_, ok = NewHistoryEntry(Event{Kind: EventUpdated})
	assert.False(t, ok)
}

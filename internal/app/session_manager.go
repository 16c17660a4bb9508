package app

import (
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
)

// SessionManager owns the active transfers, one per source URL.
//
// Commands and transfer-layer callbacks are serialized by a single mutex.
// Commands never block on network I/O and never return errors: a command
// whose precondition does not hold is a no-op and reports false. Failures
// are delivered to observers like any other state change.
type SessionManager struct {
	layer     domain.TransferLayer
	store     domain.LocalStore
	logger    *zap.Logger
	observers []domain.Observer
	transfers map[string]*domain.Transfer
	closed    bool
	mu        sync.Mutex
}

var _ domain.TransferEvents = (*SessionManager)(nil)

// NewSessionManager creates a new session manager
func NewSessionManager(
	layer domain.TransferLayer,
	store domain.LocalStore,
	logger *zap.Logger,
	observers ...domain.Observer,
) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		layer:     layer,
		store:     store,
		logger:    logger,
		observers: observers,
		transfers: make(map[string]*domain.Transfer),
	}
}

// AddObserver registers an observer for subsequent events
func (sm *SessionManager) AddObserver(o domain.Observer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.observers = append(sm.observers, o)
}

// Start begins downloading a track. It reports whether a new transfer was registered.
func (sm *SessionManager) Start(track domain.Track) bool {
	sourceURL := track.SourceURL
	if sourceURL == "" {
		return false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return false
	}
	if _, exists := sm.transfers[sourceURL]; exists {
		sm.logger.Debug("Transfer already active", zap.String("url", sourceURL))
		return false
	}

	t := domain.NewTransfer(track)
	h, err := sm.layer.Fetch(sourceURL, sm)
	if err != nil {
		sm.logger.Warn("Failed to start transfer", zap.String("url", sourceURL), zap.Error(err))
		cause := domain.NewNetworkError(sourceURL, err)
		t.MarkFailed(cause.Kind, cause)
		sm.notify(domain.EventFailed, t, true, cause)
		return false
	}

	t.MarkDownloading(h, false)
	sm.transfers[sourceURL] = t

	sm.logger.Info("Transfer started",
		zap.String("url", sourceURL),
		zap.String("handle", h.ID),
		zap.String("track", track.DisplayName()))

	sm.notify(domain.EventUpdated, t, false, nil)
	return true
}

// Pause asks the transfer layer to stop a download while keeping partial data.
// The transfer becomes Paused when the layer confirms through OnCanceled.
func (sm *SessionManager) Pause(track domain.Track) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t, ok := sm.transfers[track.SourceURL]
	if !ok || t.Status != domain.StatusDownloading || t.PauseRequested {
		return false
	}

	t.PauseRequested = true
	t.UpdatedAt = time.Now()
	sm.layer.Cancel(t.Handle, true)

	sm.logger.Info("Pause requested",
		zap.String("url", t.SourceURL),
		zap.String("handle", t.Handle.ID))

	sm.notify(domain.EventUpdated, t, false, nil)
	return true
}

// Resume continues a paused transfer, from its resume token when one was kept
func (sm *SessionManager) Resume(track domain.Track) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t, ok := sm.transfers[track.SourceURL]
	if !ok || t.Status != domain.StatusPaused {
		return false
	}

	var (
		h       domain.Handle
		err     error
		resumed bool
	)
	if t.HasResumeToken() {
		h, err = sm.layer.FetchResumed(t.SourceURL, t.ResumeToken, sm)
		if err == nil {
			resumed = true
		} else {
			sm.logger.Warn("Resume token rejected, restarting from zero",
				zap.String("url", t.SourceURL),
				zap.Error(err))
			sm.layer.Discard(t.ResumeToken)
		}
	}
	if !resumed {
		h, err = sm.layer.Fetch(t.SourceURL, sm)
	}
	if err != nil {
		sm.logger.Warn("Failed to resume transfer", zap.String("url", t.SourceURL), zap.Error(err))
		cause := domain.NewNetworkError(t.SourceURL, err)
		t.ResumeToken = nil
		t.MarkFailed(cause.Kind, cause)
		delete(sm.transfers, t.SourceURL)
		sm.notify(domain.EventFailed, t, true, cause)
		return false
	}

	t.MarkDownloading(h, resumed)

	sm.logger.Info("Transfer resumed",
		zap.String("url", t.SourceURL),
		zap.String("handle", h.ID),
		zap.Bool("from_token", resumed))

	sm.notify(domain.EventUpdated, t, false, nil)
	return true
}

// Cancel stops a transfer in any state, drops its partial data and forgets it
func (sm *SessionManager) Cancel(track domain.Track) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t, ok := sm.transfers[track.SourceURL]
	if !ok {
		return false
	}

	sm.release(t)
	delete(sm.transfers, t.SourceURL)
	t.UpdatedAt = time.Now()

	sm.logger.Info("Transfer canceled",
		zap.String("url", t.SourceURL),
		zap.String("status", string(t.Status)))

	sm.notify(domain.EventCanceled, t, true, nil)
	return true
}

// IsDownloaded reports whether the library holds a file for the track.
// It does not look at active transfers.
func (sm *SessionManager) IsDownloaded(track domain.Track) bool {
	p, err := sm.store.PathFor(track.SourceURL)
	if err != nil {
		return false
	}
	return sm.store.Exists(p)
}

// Lookup returns a snapshot of the active transfer for sourceURL
func (sm *SessionManager) Lookup(sourceURL string) (domain.Transfer, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t, ok := sm.transfers[sourceURL]
	if !ok {
		return domain.Transfer{}, false
	}
	return t.Snapshot(), true
}

// List returns snapshots of all active transfers ordered by source URL
func (sm *SessionManager) List() []domain.Transfer {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	list := make([]domain.Transfer, 0, len(sm.transfers))
	for _, t := range sm.transfers {
		list = append(list, t.Snapshot())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SourceURL < list[j].SourceURL
	})
	return list
}

// ActiveCount returns the number of transfers in the active set
func (sm *SessionManager) ActiveCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.transfers)
}

// Shutdown cancels every active transfer without keeping partial data.
// Later commands are no-ops.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.closed = true
	for url, t := range sm.transfers {
		sm.release(t)
		delete(sm.transfers, url)
		sm.notify(domain.EventCanceled, t, true, nil)
	}
	sm.logger.Info("Session manager shut down")
}

// OnProgress implements domain.TransferEvents
func (sm *SessionManager) OnProgress(h domain.Handle, bytesReceived, bytesExpected int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t := sm.current(h)
	if t == nil || t.Status != domain.StatusDownloading {
		return
	}

	t.UpdateProgress(bytesReceived, bytesExpected)
	sm.notify(domain.EventUpdated, t, false, nil)
}

// OnCompleted implements domain.TransferEvents
func (sm *SessionManager) OnCompleted(h domain.Handle, temporaryPath string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t := sm.current(h)
	if t == nil {
		// Canceled before the layer finished; nobody wants this file
		sm.removeTemporary(temporaryPath)
		return
	}

	delete(sm.transfers, t.SourceURL)

	dest, err := sm.store.Place(temporaryPath, t.SourceURL)
	if err != nil {
		cause := domain.NewFileSystemError(t.SourceURL, err)
		t.MarkFailed(cause.Kind, cause)
		sm.removeTemporary(temporaryPath)

		sm.logger.Error("Failed to place completed file",
			zap.String("url", t.SourceURL),
			zap.Error(err))

		sm.notify(domain.EventFailed, t, true, cause)
		return
	}

	t.MarkCompleted(dest)

	sm.logger.Info("Transfer completed",
		zap.String("url", t.SourceURL),
		zap.String("file", dest))

	sm.notify(domain.EventCompleted, t, true, nil)
}

// OnFailed implements domain.TransferEvents
func (sm *SessionManager) OnFailed(h domain.Handle, cause error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t := sm.current(h)
	if t == nil {
		return
	}

	var te *domain.TransferError
	if !errors.As(cause, &te) {
		te = domain.NewNetworkError(t.SourceURL, cause)
	}

	delete(sm.transfers, t.SourceURL)
	t.MarkFailed(te.Kind, te)

	sm.logger.Warn("Transfer failed",
		zap.String("url", t.SourceURL),
		zap.Float64("progress", t.Progress),
		zap.Error(cause))

	sm.notify(domain.EventFailed, t, true, te)
}

// OnCanceled implements domain.TransferEvents. Any cancellation of the
// current operation leaves the transfer Paused, including one the manager
// did not ask for.
func (sm *SessionManager) OnCanceled(h domain.Handle, token []byte) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	t := sm.current(h)
	if t == nil {
		if len(token) > 0 {
			sm.layer.Discard(token)
		}
		return
	}

	if !t.PauseRequested {
		sm.logger.Warn("Transfer layer canceled operation on its own",
			zap.String("url", t.SourceURL),
			zap.String("handle", h.ID))
	}

	t.MarkPaused(token)

	sm.logger.Info("Transfer paused",
		zap.String("url", t.SourceURL),
		zap.Bool("resumable", t.HasResumeToken()),
		zap.Float64("progress", t.Progress))

	sm.notify(domain.EventUpdated, t, false, nil)
}

// current returns the transfer that h belongs to, or nil when h is stale
func (sm *SessionManager) current(h domain.Handle) *domain.Transfer {
	t, ok := sm.transfers[h.SourceURL]
	if !ok || h.IsZero() || t.Handle.ID != h.ID {
		return nil
	}
	return t
}

// release stops the layer operation behind t or drops its partial data
func (sm *SessionManager) release(t *domain.Transfer) {
	switch {
	case t.Status == domain.StatusDownloading && !t.Handle.IsZero():
		sm.layer.Cancel(t.Handle, false)
	case t.Status == domain.StatusPaused && t.HasResumeToken():
		sm.layer.Discard(t.ResumeToken)
		t.ResumeToken = nil
	}
}

func (sm *SessionManager) removeTemporary(p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		sm.logger.Warn("Failed to remove temporary file", zap.String("path", p), zap.Error(err))
	}
}

func (sm *SessionManager) notify(kind domain.EventKind, t *domain.Transfer, removed bool, err error) {
	event := domain.Event{
		Kind:      kind,
		SourceURL: t.SourceURL,
		Transfer:  t.Snapshot(),
		Removed:   removed,
		Err:       err,
		Timestamp: time.Now(),
	}
	for _, o := range sm.observers {
		o.Notify(event)
	}
}

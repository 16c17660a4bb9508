package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/pkg/logger"
)

// HistoryRecorder logs transfer lifecycle changes and persists how transfers ended.
// Notify only enqueues; a worker goroutine does the I/O.
type HistoryRecorder struct {
	repo        domain.HistoryRepository
	multiLogger *logger.MultiLogger
	events      chan domain.Event
	lastStatus  map[string]domain.TransferStatus
	dropped     int64
	mu          sync.Mutex
	running     bool
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewHistoryRecorder creates a new history recorder
func NewHistoryRecorder(repo domain.HistoryRepository, multiLogger *logger.MultiLogger, bufferSize int) *HistoryRecorder {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &HistoryRecorder{
		repo:        repo,
		multiLogger: multiLogger,
		events:      make(chan domain.Event, bufferSize),
		lastStatus:  make(map[string]domain.TransferStatus),
		stopChan:    make(chan struct{}),
	}
}

// Start starts the recorder worker
func (hr *HistoryRecorder) Start(ctx context.Context) error {
	hr.mu.Lock()
	if hr.running {
		hr.mu.Unlock()
		return fmt.Errorf("history recorder already running")
	}
	hr.running = true
	hr.mu.Unlock()

	hr.workerWg.Add(1)
	go hr.process(ctx)

	return nil
}

// Stop drains queued events and stops the worker
func (hr *HistoryRecorder) Stop() error {
	hr.mu.Lock()
	if !hr.running {
		hr.mu.Unlock()
		return fmt.Errorf("history recorder not running")
	}
	hr.running = false
	hr.mu.Unlock()

	close(hr.stopChan)
	hr.workerWg.Wait()

	return nil
}

// IsRunning returns whether the recorder is running
func (hr *HistoryRecorder) IsRunning() bool {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return hr.running
}

// Dropped returns how many events were discarded because the buffer was full
func (hr *HistoryRecorder) Dropped() int64 {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return hr.dropped
}

// Notify implements domain.Observer. Progress-only updates are skipped.
func (hr *HistoryRecorder) Notify(event domain.Event) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	status := event.Transfer.Status
	prev, seen := hr.lastStatus[event.SourceURL]
	if event.Removed {
		delete(hr.lastStatus, event.SourceURL)
	} else {
		if seen && prev == status && event.Kind == domain.EventUpdated && !event.Transfer.PauseRequested {
			return
		}
		hr.lastStatus[event.SourceURL] = status
	}

	select {
	case hr.events <- event:
	default:
		hr.dropped++
	}
}

func (hr *HistoryRecorder) process(ctx context.Context) {
	defer hr.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			hr.drain()
			return
		case <-hr.stopChan:
			hr.drain()
			return
		case event := <-hr.events:
			hr.record(event)
		}
	}
}

func (hr *HistoryRecorder) drain() {
	for {
		select {
		case event := <-hr.events:
			hr.record(event)
		default:
			return
		}
	}
}

func (hr *HistoryRecorder) record(event domain.Event) {
	t := event.Transfer

	if hr.multiLogger != nil {
		fields := []zap.Field{
			zap.String("url", event.SourceURL),
			zap.String("status", string(t.Status)),
			zap.Float64("progress", t.Progress),
			zap.Int64("bytes_received", t.BytesReceived),
		}
		if t.TrackName != "" {
			fields = append(fields, zap.String("track", t.TrackName))
		}
		if t.FilePath != "" {
			fields = append(fields, zap.String("file_path", t.FilePath))
		}
		if t.ErrorKind != domain.ErrorKindNone {
			fields = append(fields, zap.String("error_kind", string(t.ErrorKind)), zap.String("error", t.ErrorMessage))
		}
		hr.multiLogger.LogTransferEvent(eventName(event), fields...)
	}

	entry, ok := domain.NewHistoryEntry(event)
	if !ok || hr.repo == nil {
		return
	}
	if err := hr.repo.Create(entry); err != nil && hr.multiLogger != nil {
		hr.multiLogger.LogAppError("Failed to record history entry",
			zap.String("url", event.SourceURL),
			zap.Error(err))
	}
}

// eventName gives each lifecycle step a stable log message
func eventName(event domain.Event) string {
	switch event.Kind {
	case domain.EventCompleted:
		return "transfer_completed"
	case domain.EventFailed:
		return "transfer_failed"
	case domain.EventCanceled:
		return "transfer_canceled"
	}

	switch {
	case event.Transfer.PauseRequested:
		return "transfer_pause_requested"
	case event.Transfer.Status == domain.StatusPaused:
		return "transfer_paused"
	case event.Transfer.Resumed:
		return "transfer_resumed"
	default:
		return "transfer_started"
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result recorded in the download history
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// HistoryEntry records how a transfer ended.
// The history is informational only: it is never consulted to decide
// whether a track is downloaded or how to resume it.
type HistoryEntry struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	SourceURL     string    `json:"source_url" gorm:"not null;index"`
	TrackName     string    `json:"track_name,omitempty"`
	Artist        string    `json:"artist,omitempty"`
	Outcome       Outcome   `json:"outcome" gorm:"not null;index"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	FilePath      string    `json:"file_path,omitempty"`
	BytesReceived int64     `json:"bytes_received"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at" gorm:"index"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (HistoryEntry) TableName() string {
	return "download_history"
}

// NewHistoryEntry converts a terminal event into a history entry.
// ok is false for events that do not end a transfer.
func NewHistoryEntry(event Event) (*HistoryEntry, bool) {
	var outcome Outcome
	switch event.Kind {
	case EventCompleted:
		outcome = OutcomeCompleted
	case EventFailed:
		outcome = OutcomeFailed
	case EventCanceled:
		outcome = OutcomeCanceled
	default:
		return nil, false
	}

	t := event.Transfer
	finished := event.Timestamp
	if finished.IsZero() {
		finished = time.Now()
	}
	return &HistoryEntry{
		ID:            uuid.New().String(),
		SourceURL:     event.SourceURL,
		TrackName:     t.TrackName,
		Artist:        t.Artist,
		Outcome:       outcome,
		ErrorKind:     t.ErrorKind,
		ErrorMessage:  t.ErrorMessage,
		FilePath:      t.FilePath,
		BytesReceived: t.BytesReceived,
		StartedAt:     t.StartedAt,
		FinishedAt:    finished,
	}, true
}

// HistoryRepository defines the interface for history persistence
type HistoryRepository interface {
	// Create stores a new entry
	Create(entry *HistoryEntry) error

	// FindAll finds entries with optional column filters, newest first
	FindAll(filters map[string]interface{}, limit int) ([]*HistoryEntry, error)

	// FindBySourceURL returns the most recent entry for a source URL, nil if none
	FindBySourceURL(sourceURL string) (*HistoryEntry, error)

	// GetStats returns aggregate counts
	GetStats() (*HistoryStats, error)
}

// HistoryStats represents download history statistics
type HistoryStats struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Canceled   int64 `json:"canceled"`
	TotalBytes int64 `json:"total_bytes"`
}

package domain

import (
	"time"
)

// TransferStatus represents the current status of a transfer
type TransferStatus string

const (
	StatusIdle        TransferStatus = "idle"
	StatusDownloading TransferStatus = "downloading"
	StatusPaused      TransferStatus = "paused"
	StatusCompleted   TransferStatus = "completed"
	StatusFailed      TransferStatus = "failed"
)

// IsTerminal reports whether the status ends a transfer's life
func (s TransferStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transfer is the mutable state of one in-flight or paused download.
// Only the session manager writes it; everything else sees snapshots.
type Transfer struct {
	SourceURL      string         `json:"source_url"`
	TrackName      string         `json:"track_name,omitempty"`
	Artist         string         `json:"artist,omitempty"`
	Status         TransferStatus `json:"status"`
	Progress       float64        `json:"progress"`
	BytesReceived  int64          `json:"bytes_received"`
	BytesExpected  int64          `json:"bytes_expected"`
	ResumeToken    []byte         `json:"-"`
	PauseRequested bool           `json:"pause_requested,omitempty"`
	Resumed        bool           `json:"resumed,omitempty"`
	ErrorKind      ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	FilePath       string         `json:"file_path,omitempty"`
	Handle         Handle         `json:"-"`
	StartedAt      time.Time      `json:"started_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewTransfer creates an idle transfer for a track
func NewTransfer(track Track) *Transfer {
	now := time.Now()
	return &Transfer{
		SourceURL:     track.SourceURL,
		TrackName:     track.Name,
		Artist:        track.Artist,
		Status:        StatusIdle,
		BytesExpected: -1,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// HasResumeToken reports whether partial data was kept on pause
func (t *Transfer) HasResumeToken() bool {
	return len(t.ResumeToken) > 0
}

// MarkDownloading records that an operation identified by h is outstanding
func (t *Transfer) MarkDownloading(h Handle, resumed bool) {
	t.Status = StatusDownloading
	t.Handle = h
	t.Resumed = resumed
	t.PauseRequested = false
	t.ResumeToken = nil
	if !resumed {
		t.Progress = 0
		t.BytesReceived = 0
		t.BytesExpected = -1
	}
	t.UpdatedAt = time.Now()
}

// MarkPaused moves the transfer to paused, keeping the partial-data token if any
func (t *Transfer) MarkPaused(token []byte) {
	t.Status = StatusPaused
	t.PauseRequested = false
	t.Handle = Handle{}
	if len(token) > 0 {
		t.ResumeToken = append([]byte(nil), token...)
	} else {
		t.ResumeToken = nil
	}
	t.UpdatedAt = time.Now()
}

// MarkCompleted marks the transfer as completed
func (t *Transfer) MarkCompleted(filePath string) {
	t.Status = StatusCompleted
	t.Progress = 1
	t.FilePath = filePath
	t.PauseRequested = false
	t.UpdatedAt = time.Now()
}

// MarkFailed marks the transfer as failed, preserving the last known progress
func (t *Transfer) MarkFailed(kind ErrorKind, err error) {
	t.Status = StatusFailed
	t.ErrorKind = kind
	if err != nil {
		t.ErrorMessage = err.Error()
	}
	t.PauseRequested = false
	t.UpdatedAt = time.Now()
}

// UpdateProgress applies a progress report from the transfer layer.
// An unknown total leaves Progress untouched. After a resume the value
// never drops below what was displayed before the pause.
func (t *Transfer) UpdateProgress(received, expected int64) {
	t.BytesReceived = received
	t.UpdatedAt = time.Now()
	if expected <= 0 {
		return
	}
	t.BytesExpected = expected

	p := float64(received) / float64(expected)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if t.Resumed && p < t.Progress {
		return
	}
	t.Progress = p
}

// Snapshot returns a copy that shares no memory with t
func (t *Transfer) Snapshot() Transfer {
	s := *t
	if t.ResumeToken != nil {
		s.ResumeToken = append([]byte(nil), t.ResumeToken...)
	}
	return s
}

package domain

import "time"

// EventKind describes what happened to a transfer
type EventKind string

const (
	EventUpdated   EventKind = "updated"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCanceled  EventKind = "canceled"
)

// Event is emitted after every mutation of the session manager's active set.
// Removed is set when the transfer left the active set with this event.
type Event struct {
	Kind      EventKind `json:"kind"`
	SourceURL string    `json:"source_url"`
	Transfer  Transfer  `json:"transfer"`
	Removed   bool      `json:"removed"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer consumes session manager events.
// Notify runs while the manager holds its lock: it must not block and
// must not call back into the manager.
type Observer interface {
	Notify(event Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(event Event)

// Notify calls f(event)
func (f ObserverFunc) Notify(event Event) {
	f(event)
}

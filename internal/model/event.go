package model

import "time"

// EventKind distinguishes scans that change operational status from
// passive location-confirmation ("touch") scans.
type EventKind string

// Event kinds.
const (
	EventStatusChange EventKind = "STATUS_CHANGE"
	EventTouch        EventKind = "TOUCH"
)

// TransactionEvent is an immutable append-only log entry recorded by the
// tag system. Events are never updated or deleted; every derived activity
// figure must be recomputable from this log plus the TrackedItem snapshot.
type TransactionEvent struct {
	OccurredAt  time.Time
	TagID       string
	Kind        EventKind
	ContractRef string // empty when the scan was not tied to a contract
	RecordedBy  string
}

// IsTouch reports whether the event is a passive scan.
func (e *TransactionEvent) IsTouch() bool {
	return e.Kind == EventTouch
}

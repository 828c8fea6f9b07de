package model

import "time"

// ActivityType classifies what kind of scans an item actually received
// within the lookback window, derived from the event log rather than the
// cached status field.
type ActivityType string

// Activity types. The classification is a total function of whether the
// window contains touch scans and/or status-changing events.
const (
	ActivityMixed        ActivityType = "MIXED_ACTIVITY"
	ActivityTouchManaged ActivityType = "TOUCH_MANAGED"
	ActivityStatusOnly   ActivityType = "STATUS_ONLY"
	ActivityNoRecent     ActivityType = "NO_RECENT_ACTIVITY"
)

// ActivityClassification is the per-item derived activity state. It is a
// cache: recomputing it from the event log and the TrackedItem snapshot
// always yields the same result.
type ActivityClassification struct {
	TrueLastActivityAt time.Time
	ComputedAt         time.Time
	TagID              string
	Type               ActivityType
	TrueDaysStale      int
	TouchCount         int
	StatusCount        int
	// WasPreviouslyHidden is true when staleness computed from the cached
	// status timestamp alone would have flagged the item, but the event
	// log shows it was active.
	WasPreviouslyHidden bool
}

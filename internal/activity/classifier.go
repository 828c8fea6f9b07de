// Package activity derives an item's true activity state from the full
// transaction event log. The tracked item's cached status timestamp only
// reflects status-changing scans; items managed entirely through passive
// touch scans look abandoned unless the log is consulted.
package activity

import (
	"time"

	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// Classifier computes activity classifications. It holds only
// configuration; Classify is a pure function of its arguments, so the
// whole fleet can be reclassified on every scheduled run without any
// incremental state to corrupt.
type Classifier struct {
	cfg config.Activity
}

// New creates a classifier from activity configuration.
func New(cfg config.Activity) *Classifier {
	return &Classifier{cfg: cfg}
}

// WindowStart returns the beginning of the lookback window relative to now.
func (c *Classifier) WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.cfg.LookbackDays)
}

// Classify computes the true activity state for one tracked item given
// its events inside the lookback window. Events outside the window must
// be filtered by the caller (the storage query does this).
func (c *Classifier) Classify(item model.TrackedItem, events []model.TransactionEvent, now time.Time) model.ActivityClassification {
	touchCount, statusCount := 0, 0
	var lastEventAt time.Time
	for _, ev := range events {
		if ev.IsTouch() {
			touchCount++
		} else {
			statusCount++
		}
		if ev.OccurredAt.After(lastEventAt) {
			lastEventAt = ev.OccurredAt
		}
	}

	// True last activity considers both the cached status timestamp and
	// the event log; with no events in the window, the cached timestamp
	// is all we have.
	trueLast := item.LastStatusScanAt
	if lastEventAt.After(trueLast) {
		trueLast = lastEventAt
	}

	ac := model.ActivityClassification{
		TagID:              item.TagID,
		TrueLastActivityAt: trueLast,
		Type:               classifyCounts(touchCount, statusCount),
		TouchCount:         touchCount,
		StatusCount:        statusCount,
		TrueDaysStale:      daysBetween(trueLast, now),
		ComputedAt:         now,
	}

	staleThreshold := c.cfg.StaleDaysFor(item.Category)
	naiveDaysStale := daysBetween(item.LastStatusScanAt, now)
	ac.WasPreviouslyHidden = naiveDaysStale > staleThreshold && ac.TrueDaysStale <= staleThreshold

	return ac
}

// classifyCounts is a total function over the four touch/status count
// combinations.
func classifyCounts(touchCount, statusCount int) model.ActivityType {
	switch {
	case touchCount > 0 && statusCount > 0:
		return model.ActivityMixed
	case touchCount > 0:
		return model.ActivityTouchManaged
	case statusCount > 0:
		return model.ActivityStatusOnly
	default:
		return model.ActivityNoRecent
	}
}

// daysBetween returns whole days from t to now, floored. A zero t counts
// as maximally stale within int range rather than a special case; in
// practice the lookback window bounds what callers see.
func daysBetween(t, now time.Time) int {
	if t.IsZero() {
		return int(now.Sub(time.Time{}).Hours() / 24)
	}
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

package activity

import (
	"testing"
	"time"

	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(config.Default().Activity)
}

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func touchEvent(tagID string, at time.Time) model.TransactionEvent {
	return model.TransactionEvent{TagID: tagID, Kind: model.EventTouch, OccurredAt: at}
}

func statusEvent(tagID string, at time.Time) model.TransactionEvent {
	return model.TransactionEvent{TagID: tagID, Kind: model.EventStatusChange, OccurredAt: at}
}

// The classification must be a total function of the four
// (touch_count>0, status_count>0) combinations.
func TestClassifyActivityTypeTotality(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 5)}

	tests := []struct {
		name   string
		events []model.TransactionEvent
		want   model.ActivityType
	}{
		{
			name: "both touch and status",
			events: []model.TransactionEvent{
				touchEvent("T1", daysAgo(now, 2)),
				statusEvent("T1", daysAgo(now, 4)),
			},
			want: model.ActivityMixed,
		},
		{
			name: "touch only",
			events: []model.TransactionEvent{
				touchEvent("T1", daysAgo(now, 10)),
				touchEvent("T1", daysAgo(now, 8)),
				touchEvent("T1", daysAgo(now, 2)),
			},
			want: model.ActivityTouchManaged,
		},
		{
			name: "status only",
			events: []model.TransactionEvent{
				statusEvent("T1", daysAgo(now, 3)),
			},
			want: model.ActivityStatusOnly,
		},
		{
			name:   "no events",
			events: nil,
			want:   model.ActivityNoRecent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := c.Classify(item, tt.events, now)
			if ac.Type != tt.want {
				t.Errorf("got %s, want %s", ac.Type, tt.want)
			}
		})
	}
}

func TestClassifyTrueLastActivity(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("event newer than cached timestamp wins", func(t *testing.T) {
		item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 45)}
		events := []model.TransactionEvent{touchEvent("T1", daysAgo(now, 13))}

		ac := c.Classify(item, events, now)
		if !ac.TrueLastActivityAt.Equal(daysAgo(now, 13)) {
			t.Errorf("true last activity = %v, want %v", ac.TrueLastActivityAt, daysAgo(now, 13))
		}
		if ac.TrueDaysStale != 13 {
			t.Errorf("true days stale = %d, want 13", ac.TrueDaysStale)
		}
	})

	t.Run("empty window falls back to cached timestamp", func(t *testing.T) {
		item := model.TrackedItem{TagID: "T2", ClassID: "C1", LastStatusScanAt: daysAgo(now, 7)}

		ac := c.Classify(item, nil, now)
		if !ac.TrueLastActivityAt.Equal(item.LastStatusScanAt) {
			t.Errorf("true last activity = %v, want cached %v", ac.TrueLastActivityAt, item.LastStatusScanAt)
		}
		if ac.TrueDaysStale != 7 {
			t.Errorf("true days stale = %d, want 7", ac.TrueDaysStale)
		}
	})

	t.Run("cached timestamp newer than events wins", func(t *testing.T) {
		item := model.TrackedItem{TagID: "T3", ClassID: "C1", LastStatusScanAt: daysAgo(now, 1)}
		events := []model.TransactionEvent{touchEvent("T3", daysAgo(now, 20))}

		ac := c.Classify(item, events, now)
		if ac.TrueDaysStale != 1 {
			t.Errorf("true days stale = %d, want 1", ac.TrueDaysStale)
		}
	})
}

// Fixture from the stale-item audit: cached timestamp 45 days old, touch
// scan 13 days ago, default threshold 30. The naive check flags the item;
// the log shows it is fine.
func TestClassifyWasPreviouslyHidden(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 45)}
	events := []model.TransactionEvent{
		touchEvent("T1", daysAgo(now, 13)),
	}

	ac := c.Classify(item, events, now)
	if ac.TrueDaysStale != 13 {
		t.Fatalf("true days stale = %d, want 13", ac.TrueDaysStale)
	}
	if !ac.WasPreviouslyHidden {
		t.Error("expected item to be flagged as previously hidden")
	}
	if ac.Type != model.ActivityTouchManaged {
		t.Errorf("expected TOUCH_MANAGED, got %s", ac.Type)
	}
}

func TestClassifyNotHiddenWhenTrulyStale(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// No events at all: naive and true staleness agree, so nothing was
	// hidden - the item really is stale.
	item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 45)}
	ac := c.Classify(item, nil, now)
	if ac.WasPreviouslyHidden {
		t.Error("truly stale item must not be flagged as hidden")
	}
	if ac.Type != model.ActivityNoRecent {
		t.Errorf("expected NO_RECENT_ACTIVITY, got %s", ac.Type)
	}
}

func TestClassifyNotHiddenWhenFresh(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Fresh cached timestamp: the naive check never flagged it.
	item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 2)}
	events := []model.TransactionEvent{touchEvent("T1", daysAgo(now, 1))}

	ac := c.Classify(item, events, now)
	if ac.WasPreviouslyHidden {
		t.Error("fresh item must not be flagged as hidden")
	}
}

func TestClassifyCategoryThreshold(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Resale categories go stale after 14 days, not 30. Cached timestamp
	// 20 days old would pass the default threshold but fails resale's;
	// a touch scan 3 days ago reveals the item was active.
	item := model.TrackedItem{
		TagID:            "T1",
		ClassID:          "C1",
		Category:         "resale",
		LastStatusScanAt: daysAgo(now, 20),
	}
	events := []model.TransactionEvent{touchEvent("T1", daysAgo(now, 3))}

	ac := c.Classify(item, events, now)
	if !ac.WasPreviouslyHidden {
		t.Error("expected resale item to be flagged hidden under the shorter threshold")
	}

	// Same timestamps under the default threshold: never naive-stale.
	item.Category = "generators"
	ac = c.Classify(item, events, now)
	if ac.WasPreviouslyHidden {
		t.Error("default-threshold item should not be flagged hidden")
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	item := model.TrackedItem{TagID: "T1", ClassID: "C1", LastStatusScanAt: daysAgo(now, 45)}
	events := []model.TransactionEvent{
		touchEvent("T1", daysAgo(now, 13)),
		statusEvent("T1", daysAgo(now, 40)),
	}

	first := c.Classify(item, events, now)
	second := c.Classify(item, events, now)
	if first != second {
		t.Errorf("classification not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// SaveActivityClassification stores the derived activity state for a
// tracked item. The row is a cache: the classifier recomputes it from the
// event log on every run and simply replaces what is here.
func (s *SQLiteStorage) SaveActivityClassification(ctx context.Context, ac *model.ActivityClassification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if ac == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if err := validateString(ac.TagID, "tagID"); err != nil {
		return err
	}

	computedAt := ac.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_classifications (
			tag_id, activity_type, true_last_activity_at, true_days_stale,
			touch_count, status_count, was_previously_hidden, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tag_id) DO UPDATE SET
			activity_type = excluded.activity_type,
			true_last_activity_at = excluded.true_last_activity_at,
			true_days_stale = excluded.true_days_stale,
			touch_count = excluded.touch_count,
			status_count = excluded.status_count,
			was_previously_hidden = excluded.was_previously_hidden,
			computed_at = excluded.computed_at
	`, ac.TagID, string(ac.Type), ac.TrueLastActivityAt, ac.TrueDaysStale,
		ac.TouchCount, ac.StatusCount, ac.WasPreviouslyHidden, computedAt)
	if err != nil {
		return fmt.Errorf("failed to save activity classification for %s: %w", ac.TagID, err)
	}
	return nil
}

// GetActivityClassification returns the cached activity state for a tag.
func (s *SQLiteStorage) GetActivityClassification(ctx context.Context, tagID string) (*model.ActivityClassification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tagID, "tagID"); err != nil {
		return nil, err
	}

	var (
		ac       model.ActivityClassification
		acType   string
		lastAt   sql.NullTime
		computed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT tag_id, activity_type, true_last_activity_at, true_days_stale,
		       touch_count, status_count, was_previously_hidden, computed_at
		FROM activity_classifications WHERE tag_id = ?
	`, tagID).Scan(&ac.TagID, &acType, &lastAt, &ac.TrueDaysStale,
		&ac.TouchCount, &ac.StatusCount, &ac.WasPreviouslyHidden, &computed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity classification for %s: %w", tagID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query activity classification for %s: %w", tagID, err)
	}

	ac.Type = model.ActivityType(acType)
	if lastAt.Valid {
		ac.TrueLastActivityAt = lastAt.Time
	}
	if computed.Valid {
		ac.ComputedAt = computed.Time
	}
	return &ac, nil
}

// CountActivityClassifications returns how many items have a cached
// classification.
func (s *SQLiteStorage) CountActivityClassifications(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_classifications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activity classifications: %w", err)
	}
	return count, nil
}

// CountPreviouslyHidden returns how many items the naive staleness check
// would have flagged incorrectly.
func (s *SQLiteStorage) CountPreviouslyHidden(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_classifications WHERE was_previously_hidden = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count previously hidden items: %w", err)
	}
	return count, nil
}

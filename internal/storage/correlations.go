package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// UpsertCorrelation records the matcher's verdict for a catalog entity.
// If an identical active entry already exists it is returned unchanged,
// making re-matching idempotent in net effect. Otherwise the active entry
// is retired and a new version inserted in the same SQL transaction, so a
// partially-applied match can never leave two active rows. The partial
// unique index on (catalog_entity_id) WHERE is_active = 1 backs this up
// against concurrent writers.
func (s *SQLiteStorage) UpsertCorrelation(ctx context.Context, entry *model.CorrelationEntry) (*model.CorrelationEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Compare against the latest standing verdict, not just the active
	// one: a rejected verdict is never active but still current, and
	// re-recording an identical rejection every run would bloat history.
	existing, err := s.getCurrentCorrelationTx(ctx, tx, entry.CatalogEntityID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if existing != nil && sameCorrelation(existing, entry) {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, fmt.Errorf("failed to commit: %w", commitErr)
		}
		return existing, nil
	}

	now := time.Now()

	if existing != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE correlations SET is_active = 0, superseded_at = ?
			WHERE catalog_entity_id = ? AND superseded_at IS NULL
		`, now, entry.CatalogEntityID); err != nil {
			return nil, fmt.Errorf("failed to retire correlation for %s: %w", entry.CatalogEntityID, err)
		}
	}

	saved := *entry
	saved.ID = uuid.NewString()
	saved.CreatedAt = now
	saved.SupersededAt = nil
	// Rejected verdicts are kept for audit but never active.
	saved.IsActive = entry.Type != model.CorrelationRejected

	var classID any
	if saved.ClassID != "" {
		classID = saved.ClassID
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO correlations (
			id, catalog_entity_id, class_id, correlation_type,
			confidence, quantity_delta, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, saved.ID, saved.CatalogEntityID, classID, string(saved.Type),
		saved.Confidence, saved.QuantityDelta, saved.IsActive, saved.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrCorrelationConflict, entry.CatalogEntityID)
		}
		return nil, fmt.Errorf("failed to insert correlation for %s: %w", entry.CatalogEntityID, err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrCorrelationConflict, entry.CatalogEntityID)
		}
		return nil, fmt.Errorf("failed to commit correlation for %s: %w", entry.CatalogEntityID, err)
	}
	return &saved, nil
}

// GetActiveCorrelation returns the active correlation for a catalog
// entity, or common.ErrNotFound when none exists.
func (s *SQLiteStorage) GetActiveCorrelation(ctx context.Context, catalogEntityID string) (*model.CorrelationEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(catalogEntityID, "catalogEntityID"); err != nil {
		return nil, err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := s.getActiveCorrelationTx(ctx, tx, catalogEntityID)
	if err != nil {
		return nil, err
	}
	return entry, tx.Commit()
}

func (s *SQLiteStorage) getActiveCorrelationTx(ctx context.Context, tx *sql.Tx, catalogEntityID string) (*model.CorrelationEntry, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, catalog_entity_id, class_id, correlation_type,
		       confidence, quantity_delta, is_active, created_at, superseded_at
		FROM correlations
		WHERE catalog_entity_id = ? AND is_active = 1
	`, catalogEntityID)

	entry, err := scanCorrelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active correlation for %s: %w", catalogEntityID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// getCurrentCorrelationTx returns the latest non-superseded entry for the
// entity, whether active or a standing rejection.
func (s *SQLiteStorage) getCurrentCorrelationTx(ctx context.Context, tx *sql.Tx, catalogEntityID string) (*model.CorrelationEntry, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, catalog_entity_id, class_id, correlation_type,
		       confidence, quantity_delta, is_active, created_at, superseded_at
		FROM correlations
		WHERE catalog_entity_id = ? AND superseded_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, catalogEntityID)

	entry, err := scanCorrelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("current correlation for %s: %w", catalogEntityID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListCorrelationsForClass returns every correlation version that ever
// pointed at the given class, newest first.
func (s *SQLiteStorage) ListCorrelationsForClass(ctx context.Context, classID string) ([]model.CorrelationEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(classID, "classID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, catalog_entity_id, class_id, correlation_type,
		       confidence, quantity_delta, is_active, created_at, superseded_at
		FROM correlations
		WHERE class_id = ?
		ORDER BY created_at DESC
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlations for class %s: %w", classID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CorrelationEntry
	for rows.Next() {
		entry, scanErr := scanCorrelation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CorrelationCoverage returns the active correlation count and the total
// catalog entity count, the raw inputs for the quality report's coverage
// percentage.
func (s *SQLiteStorage) CorrelationCoverage(ctx context.Context) (int, int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, 0, err
	}

	var active int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM correlations WHERE is_active = 1`).Scan(&active); err != nil {
		return 0, 0, fmt.Errorf("failed to count active correlations: %w", err)
	}

	total, err := s.CountCatalogEntities(ctx)
	if err != nil {
		return 0, 0, err
	}
	return active, total, nil
}

// CountCorrelationsByBucket buckets active correlations by confidence,
// plus the audit-only rejected entries.
func (s *SQLiteStorage) CountCorrelationsByBucket(ctx context.Context) (map[model.ConfidenceBucket]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT confidence, correlation_type FROM correlations
		WHERE is_active = 1 OR correlation_type = ?
	`, string(model.CorrelationRejected))
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := map[model.ConfidenceBucket]int{
		model.BucketHigh:     0,
		model.BucketMedium:   0,
		model.BucketLow:      0,
		model.BucketRejected: 0,
	}
	for rows.Next() {
		var (
			confidence float64
			corrType   string
		)
		if err := rows.Scan(&confidence, &corrType); err != nil {
			return nil, fmt.Errorf("failed to scan correlation bucket row: %w", err)
		}
		switch {
		case model.CorrelationType(corrType) == model.CorrelationRejected:
			buckets[model.BucketRejected]++
		case confidence >= 80:
			buckets[model.BucketHigh]++
		case confidence >= 50:
			buckets[model.BucketMedium]++
		default:
			buckets[model.BucketLow]++
		}
	}
	return buckets, rows.Err()
}

// sameCorrelation reports whether a new verdict matches the existing
// active entry closely enough to skip versioning.
func sameCorrelation(existing, entry *model.CorrelationEntry) bool {
	return existing.ClassID == entry.ClassID &&
		existing.Type == entry.Type &&
		existing.QuantityDelta == entry.QuantityDelta &&
		math.Abs(existing.Confidence-entry.Confidence) < 0.01
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func scanCorrelation(sc scanner) (model.CorrelationEntry, error) {
	var (
		entry      model.CorrelationEntry
		classID    sql.NullString
		corrType   string
		superseded sql.NullTime
	)
	if err := sc.Scan(&entry.ID, &entry.CatalogEntityID, &classID, &corrType,
		&entry.Confidence, &entry.QuantityDelta, &entry.IsActive,
		&entry.CreatedAt, &superseded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, fmt.Errorf("failed to scan correlation: %w", err)
	}
	entry.ClassID = classID.String
	entry.Type = model.CorrelationType(corrType)
	if superseded.Valid {
		t := superseded.Time
		entry.SupersededAt = &t
	}
	return entry, nil
}

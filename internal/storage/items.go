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

// SaveTrackedItems inserts or replaces tracked item snapshots from the
// tag-tracking importer.
func (s *SQLiteStorage) SaveTrackedItems(ctx context.Context, items []model.TrackedItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTrackedItems(items); err != nil {
		return err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracked_items (
			tag_id, class_id, display_name, category, status, identifier_kind,
			last_status_scan_at, store_code
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tag_id) DO UPDATE SET
			class_id = excluded.class_id,
			display_name = excluded.display_name,
			category = excluded.category,
			status = excluded.status,
			identifier_kind = excluded.identifier_kind,
			last_status_scan_at = excluded.last_status_scan_at,
			store_code = excluded.store_code
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tracked item statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		var lastScan any
		if !item.LastStatusScanAt.IsZero() {
			lastScan = item.LastStatusScanAt
		}
		if _, err := stmt.ExecContext(ctx,
			item.TagID, item.ClassID, item.DisplayName, item.Category, string(item.Status),
			string(item.Kind), lastScan, item.StoreCode,
		); err != nil {
			return fmt.Errorf("failed to save tracked item %s: %w", item.TagID, err)
		}
	}

	return tx.Commit()
}

// GetTrackedItems returns tracked items, optionally filtered by store.
func (s *SQLiteStorage) GetTrackedItems(ctx context.Context, storeCode string) ([]model.TrackedItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT tag_id, class_id, display_name, category, status, identifier_kind,
		       last_status_scan_at, store_code
		FROM tracked_items
	`
	args := []any{}
	if storeCode != "" {
		query += ` WHERE store_code = ?`
		args = append(args, storeCode)
	}
	query += ` ORDER BY tag_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.TrackedItem
	for rows.Next() {
		item, scanErr := scanTrackedItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetTrackedItem returns a single tracked item by tag ID.
func (s *SQLiteStorage) GetTrackedItem(ctx context.Context, tagID string) (*model.TrackedItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tagID, "tagID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT tag_id, class_id, display_name, category, status, identifier_kind,
		       last_status_scan_at, store_code
		FROM tracked_items WHERE tag_id = ?
	`, tagID)

	item, err := scanTrackedItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tracked item %s: %w", tagID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CountTrackedItems returns the total number of tracked items.
func (s *SQLiteStorage) CountTrackedItems(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracked items: %w", err)
	}
	return count, nil
}

// AppendEvents appends transaction events to the immutable log. There is
// deliberately no update or delete path for this table.
func (s *SQLiteStorage) AppendEvents(ctx context.Context, events []model.TransactionEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transaction_events (tag_id, event_kind, occurred_at, contract_ref, recorded_by)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		var contractRef any
		if ev.ContractRef != "" {
			contractRef = ev.ContractRef
		}
		if _, err := stmt.ExecContext(ctx,
			ev.TagID, string(ev.Kind), ev.OccurredAt, contractRef, ev.RecordedBy,
		); err != nil {
			return fmt.Errorf("failed to append event for %s: %w", ev.TagID, err)
		}
	}

	return tx.Commit()
}

// GetEventsForTag returns a tag's events at or after the given time,
// oldest first.
func (s *SQLiteStorage) GetEventsForTag(ctx context.Context, tagID string, since time.Time) ([]model.TransactionEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tagID, "tagID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, event_kind, occurred_at, contract_ref, recorded_by
		FROM transaction_events
		WHERE tag_id = ? AND occurred_at >= ?
		ORDER BY occurred_at
	`, tagID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", tagID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.TransactionEvent
	for rows.Next() {
		var (
			ev          model.TransactionEvent
			kind        string
			contractRef sql.NullString
			recordedBy  sql.NullString
		)
		if err := rows.Scan(&ev.TagID, &kind, &ev.OccurredAt, &contractRef, &recordedBy); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = model.EventKind(kind)
		ev.ContractRef = contractRef.String
		ev.RecordedBy = recordedBy.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetEquipmentClasses aggregates tracked items into their classes with
// item counts, the shape the matcher consumes. Class metadata comes from
// the most common display name within the class.
func (s *SQLiteStorage) GetEquipmentClasses(ctx context.Context, storeCode string) ([]model.EquipmentClass, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT class_id,
		       COALESCE(MAX(display_name), ''),
		       COALESCE(MAX(category), ''),
		       COALESCE(MAX(store_code), ''),
		       COUNT(*)
		FROM tracked_items
	`
	args := []any{}
	if storeCode != "" {
		query += ` WHERE store_code = ?`
		args = append(args, storeCode)
	}
	query += ` GROUP BY class_id ORDER BY class_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classes []model.EquipmentClass
	for rows.Next() {
		var c model.EquipmentClass
		if err := rows.Scan(&c.ClassID, &c.DisplayName, &c.Category, &c.StoreCode, &c.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan equipment class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func scanTrackedItem(sc scanner) (model.TrackedItem, error) {
	var (
		item        model.TrackedItem
		displayName sql.NullString
		category    sql.NullString
		status      string
		kind        string
		lastScan    sql.NullTime
		storeCode   sql.NullString
	)
	if err := sc.Scan(&item.TagID, &item.ClassID, &displayName, &category, &status, &kind, &lastScan, &storeCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan tracked item: %w", err)
	}
	item.DisplayName = displayName.String
	item.Category = category.String
	item.Status = model.ItemStatus(status)
	item.Kind = model.IdentifierKind(kind)
	if lastScan.Valid {
		item.LastStatusScanAt = lastScan.Time
	}
	item.StoreCode = storeCode.String
	return item, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// SaveCatalogEntities inserts or replaces catalog entity snapshots. The
// catalog importer is the only writer; the engine reads them back when
// matching.
func (s *SQLiteStorage) SaveCatalogEntities(ctx context.Context, entities []model.CatalogEntity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCatalogEntities(entities); err != nil {
		return err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_entities (
			entity_id, raw_entity_id, display_name, category, subcategory,
			quantity_on_hand, rental_rate, store_code, active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			raw_entity_id = excluded.raw_entity_id,
			display_name = excluded.display_name,
			category = excluded.category,
			subcategory = excluded.subcategory,
			quantity_on_hand = excluded.quantity_on_hand,
			rental_rate = excluded.rental_rate,
			store_code = excluded.store_code,
			active = excluded.active,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare catalog statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entities {
		updatedAt := e.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		rawID := e.RawEntityID
		if rawID == "" {
			rawID = e.EntityID
		}
		if _, err := stmt.ExecContext(ctx,
			e.EntityID, rawID, e.DisplayName, e.Category, e.Subcategory,
			e.QuantityOnHand, e.RentalRate.String(), e.StoreCode, e.Active, updatedAt,
		); err != nil {
			return fmt.Errorf("failed to save catalog entity %s: %w", e.EntityID, err)
		}
	}

	return tx.Commit()
}

// GetCatalogEntities returns catalog entities, optionally filtered by
// store code. Empty storeCode returns all stores.
func (s *SQLiteStorage) GetCatalogEntities(ctx context.Context, storeCode string) ([]model.CatalogEntity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT entity_id, raw_entity_id, display_name, category, subcategory,
		       quantity_on_hand, rental_rate, store_code, active, updated_at
		FROM catalog_entities
	`
	args := []any{}
	if storeCode != "" {
		query += ` WHERE store_code = ?`
		args = append(args, storeCode)
	}
	query += ` ORDER BY entity_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []model.CatalogEntity
	for rows.Next() {
		e, scanErr := scanCatalogEntity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// GetCatalogEntity returns a single catalog entity by canonical ID.
func (s *SQLiteStorage) GetCatalogEntity(ctx context.Context, entityID string) (*model.CatalogEntity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT entity_id, raw_entity_id, display_name, category, subcategory,
		       quantity_on_hand, rental_rate, store_code, active, updated_at
		FROM catalog_entities WHERE entity_id = ?
	`, entityID)

	e, err := scanCatalogEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog entity %s: %w", entityID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountCatalogEntities returns the total number of catalog entities.
func (s *SQLiteStorage) CountCatalogEntities(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count catalog entities: %w", err)
	}
	return count, nil
}

// ListStoreCodes returns the distinct store codes present in the catalog,
// used to partition batch runs.
func (s *SQLiteStorage) ListStoreCodes(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT store_code FROM catalog_entities
		WHERE store_code IS NOT NULL AND store_code != ''
		ORDER BY store_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list store codes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan store code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanCatalogEntity(sc scanner) (model.CatalogEntity, error) {
	var (
		e         model.CatalogEntity
		rawID     sql.NullString
		category  sql.NullString
		subcat    sql.NullString
		storeCode sql.NullString
		rate      string
	)
	if err := sc.Scan(&e.EntityID, &rawID, &e.DisplayName, &category, &subcat,
		&e.QuantityOnHand, &rate, &storeCode, &e.Active, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan catalog entity: %w", err)
	}
	e.RawEntityID = rawID.String
	e.Category = category.String
	e.Subcategory = subcat.String
	e.StoreCode = storeCode.String

	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return e, fmt.Errorf("catalog entity %s has unparseable rental rate %q: %w", e.EntityID, rate, err)
	}
	e.RentalRate = parsed
	return e, nil
}

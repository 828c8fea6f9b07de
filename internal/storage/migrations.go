package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Raw source tables: catalog, tracked items, event log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS catalog_entities (
					entity_id TEXT PRIMARY KEY,
					raw_entity_id TEXT,
					display_name TEXT NOT NULL,
					category TEXT,
					subcategory TEXT,
					quantity_on_hand INTEGER NOT NULL DEFAULT 0,
					rental_rate TEXT NOT NULL DEFAULT '0',
					store_code TEXT,
					active INTEGER NOT NULL DEFAULT 1,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_catalog_entities_store ON catalog_entities(store_code)`,

				`CREATE TABLE IF NOT EXISTS tracked_items (
					tag_id TEXT PRIMARY KEY,
					class_id TEXT NOT NULL,
					display_name TEXT,
					category TEXT,
					status TEXT NOT NULL,
					identifier_kind TEXT NOT NULL DEFAULT 'UNKNOWN',
					last_status_scan_at DATETIME,
					store_code TEXT
				)`,
				`CREATE INDEX idx_tracked_items_class ON tracked_items(class_id)`,
				`CREATE INDEX idx_tracked_items_store ON tracked_items(store_code)`,

				`CREATE TABLE IF NOT EXISTS transaction_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					tag_id TEXT NOT NULL,
					event_kind TEXT NOT NULL,
					occurred_at DATETIME NOT NULL,
					contract_ref TEXT,
					recorded_by TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transaction_events_tag_time ON transaction_events(tag_id, occurred_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Versioned correlations and activity classification cache",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS correlations (
					id TEXT PRIMARY KEY,
					catalog_entity_id TEXT NOT NULL,
					class_id TEXT,
					correlation_type TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					quantity_delta INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					superseded_at DATETIME
				)`,
				// At most one active correlation per catalog entity; history
				// rows keep is_active = 0 and never collide.
				`CREATE UNIQUE INDEX idx_correlations_single_active
					ON correlations(catalog_entity_id) WHERE is_active = 1`,
				`CREATE INDEX idx_correlations_class ON correlations(class_id)`,

				`CREATE TABLE IF NOT EXISTS activity_classifications (
					tag_id TEXT PRIMARY KEY,
					activity_type TEXT NOT NULL,
					true_last_activity_at DATETIME,
					true_days_stale INTEGER NOT NULL DEFAULT 0,
					touch_count INTEGER NOT NULL DEFAULT 0,
					status_count INTEGER NOT NULL DEFAULT 0,
					was_previously_hidden INTEGER NOT NULL DEFAULT 0,
					computed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Scorecard rows, report cache, and batch run bookkeeping",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS scorecard_rows (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					source TEXT NOT NULL,
					metric TEXT NOT NULL,
					store_code TEXT,
					amount TEXT NOT NULL DEFAULT '0',
					occurred_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_scorecard_rows_lookup ON scorecard_rows(source, metric, occurred_at)`,

				`CREATE TABLE IF NOT EXISTS reconciliation_reports (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					metric TEXT NOT NULL,
					period_start DATETIME NOT NULL,
					period_end DATETIME NOT NULL,
					store_scope TEXT,
					status TEXT NOT NULL,
					recommended_source TEXT,
					payload TEXT NOT NULL,
					computed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_reconciliation_reports_metric ON reconciliation_reports(metric, computed_at)`,

				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					completed_at DATETIME,
					processed INTEGER NOT NULL DEFAULT 0,
					failed INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_runs_kind_completed ON runs(kind, completed_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Index correlations by entity for history queries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_correlations_entity_created
				ON correlations(catalog_entity_id, created_at)`)
			return err
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Schema version tracking table
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		slog.Info("Applying migration", "version", m.Version, "description", m.Description)

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", txErr)
		}

		if upErr := m.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, upErr)
		}

		if _, insErr := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description,
		); insErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, insErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, commitErr)
		}
	}

	final, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema at version %d after migration, expected %d", final, ExpectedSchemaVersion)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

// RecordRun stores a batch run's bookkeeping record.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *service.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if err := validateString(run.ID, "run.ID"); err != nil {
		return err
	}
	if err := validateString(string(run.Kind), "run.Kind"); err != nil {
		return err
	}

	var completedAt any
	if !run.CompletedAt.IsZero() {
		completedAt = run.CompletedAt
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, started_at, completed_at, processed, failed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			processed = excluded.processed,
			failed = excluded.failed
	`, run.ID, string(run.Kind), run.StartedAt, completedAt, run.Processed, run.Failed); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// GetLatestRun returns the most recently completed run of the given kind.
func (s *SQLiteStorage) GetLatestRun(ctx context.Context, kind service.RunKind) (*service.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(string(kind), "kind"); err != nil {
		return nil, err
	}

	var (
		run         service.RunRecord
		kindStr     string
		completedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, started_at, completed_at, processed, failed
		FROM runs
		WHERE kind = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1
	`, string(kind)).Scan(&run.ID, &kindStr, &run.StartedAt, &completedAt, &run.Processed, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest %s run: %w", kind, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s run: %w", kind, err)
	}

	run.Kind = service.RunKind(kindStr)
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	return &run, nil
}

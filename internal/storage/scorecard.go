package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/model"
)

// SaveScorecardRows appends periodic metric rows from the financial, POS,
// or tag importers.
func (s *SQLiteStorage) SaveScorecardRows(ctx context.Context, rows []model.ScorecardRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScorecardRows(rows); err != nil {
		return err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scorecard_rows (source, metric, store_code, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scorecard statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.Source, r.Metric, r.StoreCode, r.Amount.String(), r.OccurredAt,
		); err != nil {
			return fmt.Errorf("failed to save scorecard row for %s/%s: %w", r.Source, r.Metric, err)
		}
	}

	return tx.Commit()
}

// SumScorecard totals a source's rows for one metric within a period,
// optionally scoped to a store. The row count comes back alongside the
// sum so callers can tell "source reported zero" apart from "source
// reported nothing".
func (s *SQLiteStorage) SumScorecard(ctx context.Context, source, metric string, period model.Period, storeScope string) (decimal.Decimal, int, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, 0, err
	}
	if err := validateString(source, "source"); err != nil {
		return decimal.Zero, 0, err
	}
	if err := validateString(metric, "metric"); err != nil {
		return decimal.Zero, 0, err
	}
	if err := validatePeriod(period); err != nil {
		return decimal.Zero, 0, err
	}

	query := `
		SELECT amount FROM scorecard_rows
		WHERE source = ? AND metric = ? AND occurred_at >= ? AND occurred_at < ?
	`
	args := []any{source, metric, period.Start, period.End}
	if storeScope != "" {
		query += ` AND store_code = ?`
		args = append(args, storeScope)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query scorecard rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Sum in decimal, not SQL, so money amounts never pass through
	// floating point.
	total := decimal.Zero
	count := 0
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, 0, fmt.Errorf("failed to scan scorecard amount: %w", err)
		}
		parsed, parseErr := decimal.NewFromString(amount)
		if parseErr != nil {
			return decimal.Zero, 0, fmt.Errorf("unparseable scorecard amount %q: %w", amount, parseErr)
		}
		total = total.Add(parsed)
		count++
	}
	return total, count, rows.Err()
}

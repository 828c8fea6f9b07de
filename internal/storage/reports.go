package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-rentals/crosstally/internal/model"
)

// SaveReconciliationReport caches a computed report so the quality
// reporter can count verdicts without recomputing reconciliations.
func (s *SQLiteStorage) SaveReconciliationReport(ctx context.Context, report *model.ReconciliationReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("%w: report", ErrNilParameter)
	}
	if err := validateString(report.Metric, "metric"); err != nil {
		return err
	}
	if err := validatePeriod(report.Period); err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation report: %w", err)
	}

	computedAt := report.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_reports (
			metric, period_start, period_end, store_scope,
			status, recommended_source, payload, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, report.Metric, report.Period.Start, report.Period.End, report.StoreScope,
		string(report.Status), report.RecommendedSource, string(payload), computedAt,
	); err != nil {
		return fmt.Errorf("failed to save reconciliation report: %w", err)
	}
	return nil
}

// CountReportsByStatus counts cached reconciliation reports per verdict,
// keeping only the most recent report per metric/period/scope so stale
// runs don't double count.
func (s *SQLiteStorage) CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM (
			SELECT status,
			       ROW_NUMBER() OVER (
			           PARTITION BY metric, period_start, period_end, store_scope
			           ORDER BY computed_at DESC
			       ) AS rn
			FROM reconciliation_reports
		) WHERE rn = 1
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.ReportStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan report status count: %w", err)
		}
		counts[model.ReportStatus(status)] = count
	}
	return counts, rows.Err()
}

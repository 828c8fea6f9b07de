package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func qualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Show the system-wide data quality summary",
		Long: `Aggregate correlation coverage, confidence distribution, activity
classification counts, and reconciliation verdicts into one summary.

Missing upstream data degrades the summary with a reason instead of
failing it.`,
		RunE: runQuality,
	}
}

func runQuality(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := eng.QualityReport(ctx)
	if err != nil {
		return fmt.Errorf("quality report failed: %w", err)
	}

	slog.Info("📊 Data quality summary",
		"catalog_entities", summary.TotalCatalogEntities,
		"active_correlations", summary.ActiveCorrelations,
		"coverage_pct", fmt.Sprintf("%.2f", summary.CoveragePct),
		"tracked_items", summary.TrackedItems,
		"classified_items", summary.ClassifiedItems,
		"previously_hidden", summary.PreviouslyHidden,
		"run_errors", summary.RunErrors)

	for bucket, count := range summary.ConfidenceHistogram {
		slog.Info("Confidence bucket", "bucket", bucket, "correlations", count)
	}
	for status, count := range summary.ReportStatusCounts {
		slog.Info("Reconciliation verdicts", "status", status, "reports", count)
	}

	if summary.Degraded {
		for _, reason := range summary.DegradedReasons {
			slog.Warn("Summary degraded", "reason", reason)
		}
	}

	return nil
}

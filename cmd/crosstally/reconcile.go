package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a metric across the reporting systems",
		Long: `Gather one metric from every reporting system for a period, rank the
sources by authority, and classify how badly they disagree.

A source that fails to report is still shown, at zero value and zero
coverage, so the gap is visible instead of silently dropped.`,
		RunE: runReconcile,
	}

	cmd.Flags().String("metric", "revenue", "Metric to reconcile")
	cmd.Flags().String("period", "", "Period: YYYY-MM or YYYY-MM-DD:YYYY-MM-DD (default: previous month)")
	cmd.Flags().String("store", "", "Limit to one store code")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	metric, _ := cmd.Flags().GetString("metric")
	periodArg, _ := cmd.Flags().GetString("period")
	storeScope, _ := cmd.Flags().GetString("store")

	period, err := parsePeriod(periodArg)
	if err != nil {
		return err
	}

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report, err := eng.Reconcile(ctx, metric, period, storeScope)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	slog.Info("Reconciliation report",
		"metric", report.Metric,
		"period_start", report.Period.Start.Format("2006-01-02"),
		"period_end", report.Period.End.Format("2006-01-02"),
		"status", report.Status,
		"recommended_source", report.RecommendedSource)

	for _, obs := range report.Observations {
		slog.Info("Observation",
			"source", obs.Source,
			"value", obs.Value.StringFixed(2),
			"confidence", obs.Confidence,
			"coverage_pct", fmt.Sprintf("%.2f", obs.CoveragePct),
			"note", obs.CoverageNote)
	}

	for _, v := range report.Variances {
		if v.Undeterminable {
			slog.Warn("Variance undeterminable", "a", v.SourceA, "b", v.SourceB)
			continue
		}
		slog.Info("Variance",
			"a", v.SourceA,
			"b", v.SourceB,
			"variance_pct", fmt.Sprintf("%.2f", v.VariancePct))
	}

	return nil
}

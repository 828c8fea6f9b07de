package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Correlate catalog entities against tracked equipment classes",
		Long: `Run the matching engine over the whole catalog, store by store.

Each catalog entity is scored against every equipment class: exact
identifier matches win outright, composite scores above the auto-accept
threshold are linked, borderline scores are queued for manual review, and
the rest are recorded as rejected. Re-running changes nothing unless the
underlying data changed.`,
		RunE: runMatch,
	}

	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	cmd.Flags().String("entity", "", "Show the active correlation for one catalog entity instead of running a batch")

	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if entityID, _ := cmd.Flags().GetString("entity"); entityID != "" {
		entry, err := eng.GetCorrelation(ctx, entityID)
		if err != nil {
			return err
		}
		if entry == nil {
			slog.Info("No active correlation", "entity", entityID)
			return nil
		}
		slog.Info("Active correlation",
			"entity", entry.CatalogEntityID,
			"class", entry.ClassID,
			"type", entry.Type,
			"confidence", fmt.Sprintf("%.1f", entry.Confidence),
			"quantity_delta", entry.QuantityDelta,
			"since", entry.CreatedAt.Format("2006-01-02"))
		return nil
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	eng.ShowProgress = !noProgress

	stats, err := eng.RunMatching(ctx)
	if err != nil {
		return fmt.Errorf("matching run failed: %w", err)
	}

	slog.Info("✅ Matching complete",
		"entities", stats.Entities,
		"exact", stats.Exact,
		"auto_accepted", stats.AutoAccepted,
		"manual_queue", stats.ManualQueue,
		"rejected", stats.Rejected,
		"unchanged", stats.Unchanged,
		"failed", stats.FailedRecords,
		"duration", stats.Duration.Round(time.Millisecond))

	return nil
}

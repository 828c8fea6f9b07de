package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify tracked item activity from the scan log",
		Long: `Recompute every tracked item's activity classification from its event
log, within the configured lookback window.

The classification distinguishes items managed by passive touch scans
from items with status-changing events, and flags items the cached
status timestamp alone would have wrongly reported as stale.`,
		RunE: runClassify,
	}

	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	cmd.Flags().String("tag", "", "Show the classification for one tag instead of running a batch")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if tagID, _ := cmd.Flags().GetString("tag"); tagID != "" {
		ac, err := eng.GetActivity(ctx, tagID)
		if err != nil {
			return err
		}
		slog.Info("Activity classification",
			"tag", ac.TagID,
			"type", ac.Type,
			"true_last_activity", ac.TrueLastActivityAt.Format(time.RFC3339),
			"true_days_stale", ac.TrueDaysStale,
			"touch_scans", ac.TouchCount,
			"status_events", ac.StatusCount,
			"previously_hidden", ac.WasPreviouslyHidden)
		return nil
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	eng.ShowProgress = !noProgress

	stats, err := eng.RunClassification(ctx)
	if err != nil {
		return fmt.Errorf("classification run failed: %w", err)
	}

	slog.Info("✅ Classification complete",
		"items", stats.Items,
		"previously_hidden", stats.PreviouslyHidden,
		"failed", stats.FailedRecords,
		"duration", stats.Duration.Round(time.Millisecond))
	for activityType, count := range stats.ByType {
		slog.Info("Activity breakdown", "type", activityType, "items", count)
	}

	return nil
}

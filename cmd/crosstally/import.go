package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-rentals/crosstally/internal/ingest"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import CSV exports from the source systems",
		Long: `Import data from the rental catalog, the tag-tracking system, or the
financial reporting feeds.

Each subcommand reads one CSV export. Identifiers are normalized as they
come in, so re-importing the same export is always safe.`,
	}

	cmd.AddCommand(importCatalogCmd())
	cmd.AddCommand(importItemsCmd())
	cmd.AddCommand(importEventsCmd())
	cmd.AddCommand(importScorecardCmd())

	return cmd
}

// withImportFile opens the export, runs the importer against live
// storage, and reports what was saved and what was skipped.
func withImportFile(ctx context.Context, path string, load func(context.Context, service.Storage, io.Reader) (int, int, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count, skipped, err := load(ctx, store, f)
	if err != nil {
		return err
	}

	if skipped > 0 {
		slog.Warn("⚠️ Import skipped malformed rows", "file", path, "skipped", skipped)
	}
	slog.Info("✅ Import complete", "file", path, "records", count, "skipped", skipped)
	return nil
}

func importCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog <file>",
		Short: "Import a rental catalog export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImportFile(cmd.Context(), args[0], func(ctx context.Context, store service.Storage, r io.Reader) (int, int, error) {
				entities, skipped, err := ingest.ReadCatalog(r)
				if err != nil {
					return 0, skipped, err
				}
				if err := store.SaveCatalogEntities(ctx, entities); err != nil {
					return 0, skipped, fmt.Errorf("failed to save catalog entities: %w", err)
				}
				return len(entities), skipped, nil
			})
		},
	}
}

func importItemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "items <file>",
		Short: "Import a tag-system inventory export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImportFile(cmd.Context(), args[0], func(ctx context.Context, store service.Storage, r io.Reader) (int, int, error) {
				items, skipped, err := ingest.ReadTrackedItems(r)
				if err != nil {
					return 0, skipped, err
				}
				if err := store.SaveTrackedItems(ctx, items); err != nil {
					return 0, skipped, fmt.Errorf("failed to save tracked items: %w", err)
				}
				return len(items), skipped, nil
			})
		},
	}
}

func importEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <file>",
		Short: "Import scan events into the append-only log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImportFile(cmd.Context(), args[0], func(ctx context.Context, store service.Storage, r io.Reader) (int, int, error) {
				events, skipped, err := ingest.ReadEvents(r)
				if err != nil {
					return 0, skipped, err
				}
				if err := store.AppendEvents(ctx, events); err != nil {
					return 0, skipped, fmt.Errorf("failed to append events: %w", err)
				}
				return len(events), skipped, nil
			})
		},
	}
}

func importScorecardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scorecard <file>",
		Short: "Import periodic metric rows from a reporting feed",
		Args:  cobra.ExactArgs(1),
	}
	source := cmd.Flags().String("source", "", "reporting system the rows come from (financial, pos, rfid)")
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withImportFile(c.Context(), args[0], func(ctx context.Context, store service.Storage, r io.Reader) (int, int, error) {
			rows, skipped, err := ingest.ReadScorecard(r, *source)
			if err != nil {
				return 0, skipped, err
			}
			if err := store.SaveScorecardRows(ctx, rows); err != nil {
				return 0, skipped, fmt.Errorf("failed to save scorecard rows: %w", err)
			}
			return len(rows), skipped, nil
		})
	}
	return cmd
}

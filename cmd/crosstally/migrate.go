package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "crosstally", "crosstally.db")
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		slog.Info("📊 Database migration status",
			"database", dbPath,
			"current_version", current,
			"latest_version", storage.ExpectedSchemaVersion)
		return nil
	}

	slog.Info("🗄️  Running database migrations...", "database", dbPath)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("✅ Database migrations completed successfully!")

	return nil
}

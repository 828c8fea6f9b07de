package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/engine"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/service"
	"github.com/kestrel-rentals/crosstally/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/crosstally/crosstally.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine builds the engine over freshly opened storage. The caller
// owns closing the returned storage.
func initEngine(ctx context.Context) (*engine.Engine, service.Storage, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	return engine.New(store, cfg), store, nil
}

// parsePeriod converts a period argument into a half-open window.
// Accepted forms: "2026-07" (whole month) or "2026-07-01:2026-08-01"
// (explicit start and end dates).
func parsePeriod(arg string) (model.Period, error) {
	if arg == "" {
		// Default to the previous full month.
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return model.Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
	}

	if parts := strings.SplitN(arg, ":", 2); len(parts) == 2 {
		start, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return model.Period{}, fmt.Errorf("bad period start %q: %w", parts[0], err)
		}
		end, err := time.Parse("2006-01-02", parts[1])
		if err != nil {
			return model.Period{}, fmt.Errorf("bad period end %q: %w", parts[1], err)
		}
		if !start.Before(end) {
			return model.Period{}, fmt.Errorf("period start %s must precede end %s", parts[0], parts[1])
		}
		return model.Period{Start: start, End: end}, nil
	}

	month, err := time.Parse("2006-01", arg)
	if err != nil {
		return model.Period{}, fmt.Errorf("bad period %q, want YYYY-MM or YYYY-MM-DD:YYYY-MM-DD", arg)
	}
	return model.Period{Start: month, End: month.AddDate(0, 1, 0)}, nil
}

// Package engine orchestrates the batch matching and classification runs
// and exposes the query operations the dashboard layer and scheduler call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/kestrel-rentals/crosstally/internal/activity"
	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/match"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/normalize"
	"github.com/kestrel-rentals/crosstally/internal/quality"
	"github.com/kestrel-rentals/crosstally/internal/reconcile"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

// Source names as the importers report them.
const (
	SourceFinancial = "financial"
	SourcePOS       = "pos"
	SourceRFID      = "rfid"
)

// Engine wires the matcher, classifier, reconciler, and quality reporter
// over shared storage. All batch entry points are idempotent: re-running
// them against the same data changes nothing.
type Engine struct {
	store      service.Storage
	matcher    *match.Matcher
	classifier *activity.Classifier
	reconciler *reconcile.Engine
	reporter   *quality.Reporter
	cfg        config.Config

	// ShowProgress draws a progress bar on stderr during batch runs.
	ShowProgress bool
}

// New creates an engine with the given storage and configuration.
func New(store service.Storage, cfg config.Config) *Engine {
	return &Engine{
		store:      store,
		matcher:    match.New(cfg),
		classifier: activity.New(cfg.Activity),
		reconciler: reconcile.New(cfg.Bands,
			reconcile.NewScorecardSource(store, SourceFinancial, model.ConfidenceHigh),
			reconcile.NewScorecardSource(store, SourcePOS, model.ConfidenceMedium),
			reconcile.NewTrackedSource(store, store, SourceRFID),
		),
		reporter: quality.New(store),
		cfg:      cfg,
	}
}

// RunMatching correlates every catalog entity against the tracked
// equipment classes, store by store. Per-entity failures are isolated and
// counted; only storage-level problems abort the run.
func (e *Engine) RunMatching(ctx context.Context) (*service.MatchStats, error) {
	started := time.Now()
	runID := uuid.NewString()
	slog.Info("Starting matching run", "run_id", runID)

	stores, err := e.partitions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &service.MatchStats{}
	for _, storeCode := range stores {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, ctxErr
		}
		if err := e.matchStore(ctx, storeCode, started, stats); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(started)
	run := &service.RunRecord{
		ID:          runID,
		Kind:        service.RunMatching,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Processed:   stats.Entities,
		Failed:      stats.FailedRecords,
	}
	if err := e.store.RecordRun(ctx, run); err != nil {
		return stats, fmt.Errorf("failed to record matching run: %w", err)
	}

	slog.Info("Matching run complete",
		"run_id", runID,
		"entities", stats.Entities,
		"exact", stats.Exact,
		"auto_accepted", stats.AutoAccepted,
		"manual_queue", stats.ManualQueue,
		"rejected", stats.Rejected,
		"unchanged", stats.Unchanged,
		"failed", stats.FailedRecords,
		"duration", stats.Duration)
	return stats, nil
}

// matchStore processes one store partition in sub-batches of
// cfg.BatchSize entities, so a cancelled run stops on a batch boundary
// with everything before it committed. Ordering between partitions is
// irrelevant; each one loads only its own entities and classes.
func (e *Engine) matchStore(ctx context.Context, storeCode string, runStarted time.Time, stats *service.MatchStats) error {
	entities, err := e.store.GetCatalogEntities(ctx, storeCode)
	if err != nil {
		return fmt.Errorf("failed to load catalog entities for store %q: %w", storeCode, err)
	}
	classes, err := e.store.GetEquipmentClasses(ctx, storeCode)
	if err != nil {
		return fmt.Errorf("failed to load equipment classes for store %q: %w", storeCode, err)
	}

	slog.Info("Matching store partition",
		"store", storeCode,
		"entities", len(entities),
		"classes", len(classes))

	batchSize := e.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(entities)
	}

	bar := e.progress(len(entities), fmt.Sprintf("matching %s", storeCode))
	for start := 0; start < len(entities); start += batchSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		end := min(start+batchSize, len(entities))
		e.matchBatch(ctx, storeCode, entities[start:end], classes, runStarted, stats, bar)
		slog.Debug("Matched batch", "store", storeCode, "through", end, "of", len(entities))
	}
	return nil
}

func (e *Engine) matchBatch(ctx context.Context, storeCode string, entities []model.CatalogEntity, classes []model.EquipmentClass, runStarted time.Time, stats *service.MatchStats, bar *progressbar.ProgressBar) {
	for _, entity := range entities {
		stats.Entities++
		_ = bar.Add(1)

		result := e.matcher.Match(entity, classes)
		if result.Best == nil {
			continue
		}

		saved, upsertErr := e.store.UpsertCorrelation(ctx, result.Best)
		if upsertErr != nil {
			stats.FailedRecords++
			common.LogError(upsertErr, "Failed to persist correlation", common.Fields{
				"catalog_entity_id": entity.EntityID,
				"store":             storeCode,
			})
			continue
		}

		if saved.CreatedAt.Before(runStarted) {
			// Identical active entry already existed; nothing written.
			stats.Unchanged++
			continue
		}
		switch saved.Type {
		case model.CorrelationExact:
			stats.Exact++
		case model.CorrelationClassOnly:
			stats.AutoAccepted++
		case model.CorrelationLowConfidence:
			stats.ManualQueue++
		case model.CorrelationRejected:
			stats.Rejected++
		}
	}
}

// RunClassification recomputes the activity classification for every
// tracked item from its event log. Safe to re-run at any time; there is
// no incremental state.
func (e *Engine) RunClassification(ctx context.Context) (*service.ClassifyStats, error) {
	started := time.Now()
	runID := uuid.NewString()
	slog.Info("Starting classification run", "run_id", runID)

	items, err := e.store.GetTrackedItems(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked items: %w", err)
	}

	stats := &service.ClassifyStats{
		ByType: make(map[model.ActivityType]int),
	}
	windowStart := e.classifier.WindowStart(started)

	bar := e.progress(len(items), "classifying")
	for _, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, ctxErr
		}
		stats.Items++
		_ = bar.Add(1)

		events, evErr := e.store.GetEventsForTag(ctx, item.TagID, windowStart)
		if evErr != nil {
			stats.FailedRecords++
			common.LogError(evErr, "Failed to load events", common.Fields{"tag_id": item.TagID})
			continue
		}

		ac := e.classifier.Classify(item, events, started)
		if saveErr := e.store.SaveActivityClassification(ctx, &ac); saveErr != nil {
			stats.FailedRecords++
			common.LogError(saveErr, "Failed to save classification", common.Fields{"tag_id": item.TagID})
			continue
		}

		stats.ByType[ac.Type]++
		if ac.WasPreviouslyHidden {
			stats.PreviouslyHidden++
		}
	}

	stats.Duration = time.Since(started)
	run := &service.RunRecord{
		ID:          runID,
		Kind:        service.RunClassification,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Processed:   stats.Items,
		Failed:      stats.FailedRecords,
	}
	if err := e.store.RecordRun(ctx, run); err != nil {
		return stats, fmt.Errorf("failed to record classification run: %w", err)
	}

	slog.Info("Classification run complete",
		"run_id", runID,
		"items", stats.Items,
		"previously_hidden", stats.PreviouslyHidden,
		"failed", stats.FailedRecords,
		"duration", stats.Duration)
	return stats, nil
}

// GetCorrelation returns the active correlation for a catalog entity, or
// nil when none exists. The identifier is normalized first, so callers
// may pass it in any of the source systems' formats.
func (e *Engine) GetCorrelation(ctx context.Context, catalogEntityID string) (*model.CorrelationEntry, error) {
	canonical := normalize.Identifier(catalogEntityID)
	entry, err := e.store.GetActiveCorrelation(ctx, canonical)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetActivity returns the activity classification for a tag. If no cached
// classification exists yet, it computes one on the fly from the event
// log without persisting it.
func (e *Engine) GetActivity(ctx context.Context, tagID string) (*model.ActivityClassification, error) {
	ac, err := e.store.GetActivityClassification(ctx, tagID)
	if err == nil {
		return ac, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	item, err := e.store.GetTrackedItem(ctx, tagID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	events, err := e.store.GetEventsForTag(ctx, tagID, e.classifier.WindowStart(now))
	if err != nil {
		return nil, err
	}
	fresh := e.classifier.Classify(*item, events, now)
	return &fresh, nil
}

// Reconcile compares a metric across all sources for the given window and
// store scope, caches the report, and returns it.
func (e *Engine) Reconcile(ctx context.Context, metric string, period model.Period, storeScope string) (*model.ReconciliationReport, error) {
	report, err := e.reconciler.Reconcile(ctx, metric, period, storeScope)
	if err != nil {
		return nil, err
	}
	if saveErr := e.store.SaveReconciliationReport(ctx, report); saveErr != nil {
		// The report itself is still good; caching it is best effort.
		common.LogError(saveErr, "Failed to cache reconciliation report", common.Fields{"metric": metric})
	}
	return report, nil
}

// QualityReport aggregates system-wide quality state.
func (e *Engine) QualityReport(ctx context.Context) (*model.QualitySummary, error) {
	return e.reporter.Report(ctx)
}

// partitions returns the store codes to process. A catalog without store
// codes runs as a single unpartitioned batch.
func (e *Engine) partitions(ctx context.Context) ([]string, error) {
	stores, err := e.store.ListStoreCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list store codes: %w", err)
	}
	if len(stores) == 0 {
		return []string{""}, nil
	}
	return stores, nil
}

// progress returns a progress bar, or a silent one when disabled.
func (e *Engine) progress(total int, description string) *progressbar.ProgressBar {
	if !e.ShowProgress {
		return progressbar.DefaultSilent(int64(total), description)
	}
	return progressbar.Default(int64(total), description)
}

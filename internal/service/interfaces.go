// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/model"
)

// RunKind identifies a batch run type for bookkeeping.
type RunKind string

// Run kinds.
const (
	RunMatching       RunKind = "matching"
	RunClassification RunKind = "classification"
)

// RunRecord captures one batch run's bookkeeping: how many entities were
// processed and how many failed in isolation. The quality reporter uses
// the latest records to detect upstream runs that have not completed.
type RunRecord struct {
	StartedAt   time.Time
	CompletedAt time.Time
	ID          string
	Kind        RunKind
	Processed   int
	Failed      int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Catalog operations (importer output, read-mostly for the engine)
	SaveCatalogEntities(ctx context.Context, entities []model.CatalogEntity) error
	GetCatalogEntities(ctx context.Context, storeCode string) ([]model.CatalogEntity, error)
	GetCatalogEntity(ctx context.Context, entityID string) (*model.CatalogEntity, error)
	CountCatalogEntities(ctx context.Context) (int, error)
	ListStoreCodes(ctx context.Context) ([]string, error)

	// Tracked item and event operations
	SaveTrackedItems(ctx context.Context, items []model.TrackedItem) error
	GetTrackedItems(ctx context.Context, storeCode string) ([]model.TrackedItem, error)
	GetTrackedItem(ctx context.Context, tagID string) (*model.TrackedItem, error)
	CountTrackedItems(ctx context.Context) (int, error)
	AppendEvents(ctx context.Context, events []model.TransactionEvent) error
	GetEventsForTag(ctx context.Context, tagID string, since time.Time) ([]model.TransactionEvent, error)
	GetEquipmentClasses(ctx context.Context, storeCode string) ([]model.EquipmentClass, error)

	// Correlation operations
	UpsertCorrelation(ctx context.Context, entry *model.CorrelationEntry) (*model.CorrelationEntry, error)
	GetActiveCorrelation(ctx context.Context, catalogEntityID string) (*model.CorrelationEntry, error)
	ListCorrelationsForClass(ctx context.Context, classID string) ([]model.CorrelationEntry, error)
	CorrelationCoverage(ctx context.Context) (active, total int, err error)
	CountCorrelationsByBucket(ctx context.Context) (map[model.ConfidenceBucket]int, error)

	// Activity classification cache
	SaveActivityClassification(ctx context.Context, ac *model.ActivityClassification) error
	GetActivityClassification(ctx context.Context, tagID string) (*model.ActivityClassification, error)
	CountActivityClassifications(ctx context.Context) (int, error)
	CountPreviouslyHidden(ctx context.Context) (int, error)

	// Scorecard rows (financial/POS importer output)
	SaveScorecardRows(ctx context.Context, rows []model.ScorecardRow) error
	SumScorecard(ctx context.Context, source, metric string, period model.Period, storeScope string) (decimal.Decimal, int, error)

	// Reconciliation report cache
	SaveReconciliationReport(ctx context.Context, report *model.ReconciliationReport) error
	CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error)

	// Batch run bookkeeping
	RecordRun(ctx context.Context, run *RunRecord) error
	GetLatestRun(ctx context.Context, kind RunKind) (*RunRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// MatchStats shows the results of a matching run.
type MatchStats struct {
	Duration      time.Duration
	Entities      int
	Exact         int
	AutoAccepted  int
	ManualQueue   int
	Rejected      int
	Unchanged     int
	FailedRecords int
}

// ClassifyStats shows the results of a classification run.
type ClassifyStats struct {
	Duration         time.Duration
	Items            int
	PreviouslyHidden int
	ByType           map[model.ActivityType]int
	FailedRecords    int
}

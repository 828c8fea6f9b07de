// Package quality aggregates correlation, activity, and reconciliation
// state into a system-wide data quality summary. It only counts and
// averages; all decision logic lives upstream.
package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

// Reader is the slice of storage the reporter needs.
type Reader interface {
	CorrelationCoverage(ctx context.Context) (active, total int, err error)
	CountCorrelationsByBucket(ctx context.Context) (map[model.ConfidenceBucket]int, error)
	CountTrackedItems(ctx context.Context) (int, error)
	CountActivityClassifications(ctx context.Context) (int, error)
	CountPreviouslyHidden(ctx context.Context) (int, error)
	CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error)
	GetLatestRun(ctx context.Context, kind service.RunKind) (*service.RunRecord, error)
}

// Reporter builds quality summaries.
type Reporter struct {
	reader Reader
}

// New creates a quality reporter.
func New(reader Reader) *Reporter {
	return &Reporter{reader: reader}
}

// Report aggregates current quality state. Missing upstream data marks
// the summary degraded with a reason instead of failing: a dashboard
// showing "matching has not run yet" beats an error page.
func (r *Reporter) Report(ctx context.Context) (*model.QualitySummary, error) {
	summary := &model.QualitySummary{
		GeneratedAt:         time.Now(),
		ConfidenceHistogram: make(map[model.ConfidenceBucket]int),
		ReportStatusCounts:  make(map[model.ReportStatus]int),
	}

	degrade := func(reason string) {
		summary.Degraded = true
		summary.DegradedReasons = append(summary.DegradedReasons, reason)
	}

	active, total, err := r.reader.CorrelationCoverage(ctx)
	if err != nil {
		degrade(fmt.Sprintf("correlation coverage unavailable: %v", err))
	} else {
		summary.ActiveCorrelations = active
		summary.TotalCatalogEntities = total
		if total > 0 {
			// Exactly active/total*100; the report must never disagree
			// with its own raw counts.
			summary.CoveragePct = float64(active) / float64(total) * 100
		} else {
			degrade("no catalog entities imported")
		}
	}

	if buckets, err := r.reader.CountCorrelationsByBucket(ctx); err != nil {
		degrade(fmt.Sprintf("confidence histogram unavailable: %v", err))
	} else {
		summary.ConfidenceHistogram = buckets
	}

	if items, err := r.reader.CountTrackedItems(ctx); err != nil {
		degrade(fmt.Sprintf("tracked item count unavailable: %v", err))
	} else {
		summary.TrackedItems = items
	}

	if classified, err := r.reader.CountActivityClassifications(ctx); err != nil {
		degrade(fmt.Sprintf("activity classification count unavailable: %v", err))
	} else {
		summary.ClassifiedItems = classified
	}

	if hidden, err := r.reader.CountPreviouslyHidden(ctx); err != nil {
		degrade(fmt.Sprintf("previously-hidden count unavailable: %v", err))
	} else {
		summary.PreviouslyHidden = hidden
	}

	if counts, err := r.reader.CountReportsByStatus(ctx); err != nil {
		degrade(fmt.Sprintf("reconciliation report counts unavailable: %v", err))
	} else {
		summary.ReportStatusCounts = counts
	}

	for _, kind := range []service.RunKind{service.RunMatching, service.RunClassification} {
		run, err := r.reader.GetLatestRun(ctx, kind)
		switch {
		case errors.Is(err, common.ErrNotFound):
			degrade(fmt.Sprintf("%s has not completed a run", kind))
		case err != nil:
			degrade(fmt.Sprintf("%s run record unavailable: %v", kind, err))
		default:
			summary.RunErrors += run.Failed
		}
	}

	return summary, nil
}

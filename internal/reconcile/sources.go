package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

// ScorecardReader is the slice of storage the scorecard-backed sources need.
type ScorecardReader interface {
	SumScorecard(ctx context.Context, source, metric string, period model.Period, storeScope string) (decimal.Decimal, int, error)
}

// CoverageReader exposes correlation coverage for the tag-system source.
type CoverageReader interface {
	CorrelationCoverage(ctx context.Context) (active, total int, err error)
}

// ScorecardSource reads one reporting system's rows from the scorecard
// table. The financial ledger and POS totals both come through here,
// each with its own declared confidence.
type ScorecardSource struct {
	reader     ScorecardReader
	name       string
	confidence model.ConfidenceLevel
	retry      service.RetryOptions
}

// NewScorecardSource creates a scorecard-backed source.
func NewScorecardSource(reader ScorecardReader, name string, confidence model.ConfidenceLevel) *ScorecardSource {
	return &ScorecardSource{
		reader:     reader,
		name:       name,
		confidence: confidence,
	}
}

// Name returns the source's reporting-system name.
func (s *ScorecardSource) Name() string {
	return s.name
}

// Gather sums the source's rows for the metric and period. A source with
// no rows reports zero value at low confidence and zero coverage so the
// gap shows up in the report instead of vanishing.
func (s *ScorecardSource) Gather(ctx context.Context, metric string, period model.Period, storeScope string) (model.MetricObservation, error) {
	var (
		total decimal.Decimal
		rows  int
	)
	err := common.WithRetry(ctx, func() error {
		var sumErr error
		total, rows, sumErr = s.reader.SumScorecard(ctx, s.name, metric, period, storeScope)
		return sumErr
	}, s.retry)
	if err != nil {
		return model.MetricObservation{}, fmt.Errorf("%w: %s: %v", common.ErrSourceUnavailable, s.name, err)
	}

	obs := model.MetricObservation{
		ObservedAt: time.Now(),
		Source:     s.name,
		Metric:     metric,
		Value:      total,
		Confidence: s.confidence,
	}
	if rows == 0 {
		obs.Confidence = model.ConfidenceLow
		obs.CoveragePct = 0
		obs.CoverageNote = "no rows reported for period"
		return obs, nil
	}
	obs.CoveragePct = 100
	obs.CoverageNote = fmt.Sprintf("%d scorecard rows", rows)
	return obs, nil
}

// TrackedSource aggregates the tag system's scorecard rows, with coverage
// derived from how much of the catalog the correlation store has actually
// linked. A fleet with 290 of 16259 entities correlated genuinely covers
// under two percent of the catalog, and the observation says so.
type TrackedSource struct {
	reader   ScorecardReader
	coverage CoverageReader
	name     string
}

// NewTrackedSource creates the tag-system source.
func NewTrackedSource(reader ScorecardReader, coverage CoverageReader, name string) *TrackedSource {
	return &TrackedSource{reader: reader, coverage: coverage, name: name}
}

// Name returns the source's reporting-system name.
func (s *TrackedSource) Name() string {
	return s.name
}

// Gather sums the tag system's rows and attaches correlation coverage.
func (s *TrackedSource) Gather(ctx context.Context, metric string, period model.Period, storeScope string) (model.MetricObservation, error) {
	total, rows, err := s.reader.SumScorecard(ctx, s.name, metric, period, storeScope)
	if err != nil {
		return model.MetricObservation{}, fmt.Errorf("%w: %s: %v", common.ErrSourceUnavailable, s.name, err)
	}

	active, totalEntities, err := s.coverage.CorrelationCoverage(ctx)
	if err != nil {
		return model.MetricObservation{}, fmt.Errorf("%w: %s coverage: %v", common.ErrSourceUnavailable, s.name, err)
	}

	coveragePct := 0.0
	if totalEntities > 0 {
		coveragePct = float64(active) / float64(totalEntities) * 100
	}

	obs := model.MetricObservation{
		ObservedAt:   time.Now(),
		Source:       s.name,
		Metric:       metric,
		Value:        total,
		CoveragePct:  coveragePct,
		CoverageNote: fmt.Sprintf("%d of %d catalog entities correlated", active, totalEntities),
	}
	switch {
	case rows == 0:
		obs.Value = decimal.Zero
		obs.Confidence = model.ConfidenceLow
		obs.CoverageNote = "no rows reported for period"
		obs.CoveragePct = 0
	case coveragePct >= 50:
		obs.Confidence = model.ConfidenceMedium
	default:
		obs.Confidence = model.ConfidenceLow
	}
	return obs, nil
}

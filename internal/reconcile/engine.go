// Package reconcile compares the same business metric as reported by
// multiple systems and recommends an authoritative source. Transparency
// is the point: every observation and every pairwise variance ends up in
// the report, never just the winner.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// Source gathers one system's observation of a metric. Implementations
// should return an error only for real failures; "the source has no data"
// is a zero-coverage observation, not an error.
type Source interface {
	Name() string
	Gather(ctx context.Context, metric string, period model.Period, storeScope string) (model.MetricObservation, error)
}

// Engine reconciles metric observations across sources.
type Engine struct {
	bands   config.VarianceBands
	sources []Source
}

// New creates a reconciliation engine over the given sources.
func New(bands config.VarianceBands, sources ...Source) *Engine {
	return &Engine{bands: bands, sources: sources}
}

// Reconcile gathers an observation from every source and builds the full
// report. A source that fails is included as a zero-value, low-confidence,
// zero-coverage observation so the coverage gap is visible, rather than
// silently dropped.
func (e *Engine) Reconcile(ctx context.Context, metric string, period model.Period, storeScope string) (*model.ReconciliationReport, error) {
	if len(e.sources) == 0 {
		return nil, common.ErrNoObservations
	}
	if metric == "" {
		return nil, fmt.Errorf("%w: metric name", common.ErrMissingConfig)
	}

	now := time.Now()
	observations := make([]model.MetricObservation, 0, len(e.sources))
	for _, src := range e.sources {
		obs, err := src.Gather(ctx, metric, period, storeScope)
		if err != nil {
			slog.Warn("Metric source failed, including as zero-coverage",
				"source", src.Name(),
				"metric", metric,
				"error", err)
			obs = model.MetricObservation{
				ObservedAt:   now,
				Source:       src.Name(),
				Metric:       metric,
				Value:        decimal.Zero,
				Confidence:   model.ConfidenceLow,
				CoveragePct:  0,
				CoverageNote: fmt.Sprintf("source unavailable: %v", err),
			}
		}
		observations = append(observations, obs)
	}

	// Authority order: declared confidence, then coverage, then recency.
	sortByAuthority(observations)

	report := &model.ReconciliationReport{
		ComputedAt:        now,
		Metric:            metric,
		StoreScope:        storeScope,
		Period:            period,
		Observations:      observations,
		Variances:         pairwiseVariances(observations),
		RecommendedSource: observations[0].Source,
	}
	report.Status = e.classifyPrimaryPair(report)

	return report, nil
}

// sortByAuthority orders observations most-authoritative first:
// highest declared confidence, tie-broken by coverage percentage, then by
// most recent observation timestamp, then by name for determinism.
func sortByAuthority(obs []model.MetricObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Confidence.Rank() != obs[j].Confidence.Rank() {
			return obs[i].Confidence.Rank() > obs[j].Confidence.Rank()
		}
		if obs[i].CoveragePct != obs[j].CoveragePct {
			return obs[i].CoveragePct > obs[j].CoveragePct
		}
		if !obs[i].ObservedAt.Equal(obs[j].ObservedAt) {
			return obs[i].ObservedAt.After(obs[j].ObservedAt)
		}
		return obs[i].Source < obs[j].Source
	})
}

// pairwiseVariances computes (b-a)/a*100 for every observation pair, with
// the more authoritative observation as the denominator. A zero
// denominator marks the pair undeterminable instead of failing.
func pairwiseVariances(obs []model.MetricObservation) []model.VariancePair {
	var pairs []model.VariancePair
	for i := 0; i < len(obs); i++ {
		for j := i + 1; j < len(obs); j++ {
			pair := model.VariancePair{
				SourceA: obs[i].Source,
				SourceB: obs[j].Source,
			}
			if obs[i].Value.IsZero() {
				pair.Undeterminable = true
			} else {
				pair.VariancePct = obs[j].Value.Sub(obs[i].Value).
					Div(obs[i].Value).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// classifyPrimaryPair grades the agreement of the two most-authoritative
// sources against the configured variance bands.
func (e *Engine) classifyPrimaryPair(report *model.ReconciliationReport) model.ReportStatus {
	if len(report.Observations) < 2 || len(report.Variances) == 0 {
		return model.ReportUndeterminable
	}

	// Observations are sorted by authority, so the first variance pair is
	// the primary one.
	primary := report.Variances[0]
	if primary.Undeterminable {
		return model.ReportUndeterminable
	}

	v := math.Abs(primary.VariancePct)
	switch {
	case v < e.bands.Excellent:
		return model.ReportExcellent
	case v < e.bands.Good:
		return model.ReportGood
	case v < e.bands.Acceptable:
		return model.ReportAcceptable
	default:
		return model.ReportNeedsAttention
	}
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfidenceLevel is a source's self-declared trust level for a metric.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Rank returns an ordering value for recommendation tie-breaks; higher is
// more trusted.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// MetricObservation is one source's report of a business metric for a
// period. Observations are ephemeral - computed per reconciliation
// request, not persisted long-term.
type MetricObservation struct {
	ObservedAt   time.Time
	Source       string
	Metric       string
	CoverageNote string
	Value        decimal.Decimal
	Confidence   ConfidenceLevel
	CoveragePct  float64
}

// VariancePair records the percentage variance between two observations
// of the same metric.
type VariancePair struct {
	SourceA        string
	SourceB        string
	VariancePct    float64
	Undeterminable bool // denominator source reported zero
}

// ReportStatus classifies how well the two most-authoritative sources
// agree.
type ReportStatus string

// Report statuses.
const (
	ReportExcellent      ReportStatus = "EXCELLENT"
	ReportGood           ReportStatus = "GOOD"
	ReportAcceptable     ReportStatus = "ACCEPTABLE"
	ReportNeedsAttention ReportStatus = "NEEDS_ATTENTION"
	// ReportUndeterminable means the primary pair could not be compared,
	// typically because a source reported zero.
	ReportUndeterminable ReportStatus = "UNDETERMINABLE"
)

// Period is a half-open reporting window.
type Period struct {
	Start time.Time
	End   time.Time
}

// ReconciliationReport is the full output of one reconciliation: every
// observation, every pairwise variance, and the recommendation. The
// engine never picks a source without recording the alternatives.
type ReconciliationReport struct {
	ComputedAt        time.Time
	Metric            string
	StoreScope        string // empty means all stores
	RecommendedSource string
	Status            ReportStatus
	Period            Period
	Observations      []MetricObservation
	Variances         []VariancePair
}

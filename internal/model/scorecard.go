package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ScorecardRow is one periodic metric row produced by the financial, POS,
// or tag importers. Reconciliation sources aggregate these rows into
// MetricObservations; the rows themselves are raw importer output.
type ScorecardRow struct {
	OccurredAt time.Time
	Source     string // reporting system, e.g. "financial", "pos", "rfid"
	Metric     string // business metric name, e.g. "revenue"
	StoreCode  string
	Amount     decimal.Decimal
}

// Validate ensures the row is usable as reconciliation input.
func (r *ScorecardRow) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("scorecard row missing source")
	}
	if r.Metric == "" {
		return fmt.Errorf("scorecard row missing metric")
	}
	if r.OccurredAt.IsZero() {
		return fmt.Errorf("scorecard row missing timestamp")
	}
	return nil
}

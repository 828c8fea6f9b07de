package reconcile

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/model"
)

// stubSource returns a canned observation or error.
type stubSource struct {
	err error
	obs model.MetricObservation
}

func (s *stubSource) Name() string {
	return s.obs.Source
}

func (s *stubSource) Gather(_ context.Context, _ string, _ model.Period, _ string) (model.MetricObservation, error) {
	if s.err != nil {
		return model.MetricObservation{}, s.err
	}
	return s.obs, nil
}

func obs(source string, value int64, conf model.ConfidenceLevel, coverage float64, at time.Time) *stubSource {
	return &stubSource{obs: model.MetricObservation{
		ObservedAt:  at,
		Source:      source,
		Metric:      "revenue",
		Value:       decimal.NewFromInt(value),
		Confidence:  conf,
		CoveragePct: coverage,
	}}
}

func testPeriod() model.Period {
	return model.Period{
		Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestReconcileFinancialVsPOS(t *testing.T) {
	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	e := New(config.Default().Bands,
		obs("financial", 127500, model.ConfidenceHigh, 100, at),
		obs("pos", 125800, model.ConfidenceHigh, 95, at),
	)

	report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// Higher coverage breaks the confidence tie.
	if report.RecommendedSource != "financial" {
		t.Errorf("recommended = %s, want financial", report.RecommendedSource)
	}

	if len(report.Variances) != 1 {
		t.Fatalf("expected 1 variance pair, got %d", len(report.Variances))
	}
	primary := report.Variances[0]
	if primary.SourceA != "financial" || primary.SourceB != "pos" {
		t.Errorf("primary pair = %s/%s, want financial/pos", primary.SourceA, primary.SourceB)
	}
	want := (125800.0 - 127500.0) / 127500.0 * 100 // about -1.33%
	if math.Abs(primary.VariancePct-want) > 0.01 {
		t.Errorf("variance = %.4f, want %.4f", primary.VariancePct, want)
	}

	if report.Status != model.ReportExcellent {
		t.Errorf("status = %s, want EXCELLENT", report.Status)
	}
}

func TestReconcileLowCoverageSourceDoesNotWin(t *testing.T) {
	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	e := New(config.Default().Bands,
		obs("financial", 127500, model.ConfidenceHigh, 100, at),
		obs("pos", 125800, model.ConfidenceHigh, 95, at),
		obs("rfid", 2245, model.ConfidenceLow, 1.78, at),
	)

	report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(report.Observations) != 3 {
		t.Fatalf("expected all 3 observations in report, got %d", len(report.Observations))
	}
	if report.RecommendedSource == "rfid" {
		t.Error("near-zero-coverage source must not win the recommendation")
	}
	// The rfid outlier must not skew the primary-pair classification.
	if report.Status != model.ReportExcellent {
		t.Errorf("status = %s, want EXCELLENT despite rfid outlier", report.Status)
	}

	// The wild rfid variances are still recorded.
	if len(report.Variances) != 3 {
		t.Errorf("expected 3 variance pairs, got %d", len(report.Variances))
	}
}

func TestReconcileVarianceBands(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name string
		a, b int64
		want model.ReportStatus
	}{
		{"excellent under 5", 100000, 96000, model.ReportExcellent},
		{"good between 5 and 10", 100000, 92000, model.ReportGood},
		{"acceptable between 10 and 15", 100000, 88000, model.ReportAcceptable},
		{"needs attention at 15 and above", 100000, 85000, model.ReportNeedsAttention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(config.Default().Bands,
				obs("financial", tt.a, model.ConfidenceHigh, 100, at),
				obs("pos", tt.b, model.ConfidenceMedium, 100, at),
			)
			report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
			if err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
		})
	}
}

func TestReconcileZeroDenominatorUndeterminable(t *testing.T) {
	at := time.Now()
	e := New(config.Default().Bands,
		obs("financial", 0, model.ConfidenceHigh, 100, at),
		obs("pos", 125800, model.ConfidenceMedium, 100, at),
	)

	report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !report.Variances[0].Undeterminable {
		t.Error("expected primary pair to be undeterminable with zero denominator")
	}
	if report.Status != model.ReportUndeterminable {
		t.Errorf("status = %s, want UNDETERMINABLE", report.Status)
	}
}

func TestReconcileFailedSourceIncludedAsZeroCoverage(t *testing.T) {
	at := time.Now()
	e := New(config.Default().Bands,
		obs("financial", 127500, model.ConfidenceHigh, 100, at),
		obs("pos", 125800, model.ConfidenceHigh, 95, at),
		&stubSource{obs: model.MetricObservation{Source: "rfid"}, err: errors.New("connection refused")},
	)

	report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var failed *model.MetricObservation
	for i := range report.Observations {
		if report.Observations[i].Source == "rfid" {
			failed = &report.Observations[i]
		}
	}
	if failed == nil {
		t.Fatal("failed source missing from report")
	}
	if !failed.Value.IsZero() {
		t.Errorf("failed source value = %s, want 0", failed.Value)
	}
	if failed.Confidence != model.ConfidenceLow {
		t.Errorf("failed source confidence = %s, want LOW", failed.Confidence)
	}
	if failed.CoveragePct != 0 {
		t.Errorf("failed source coverage = %.2f, want 0", failed.CoveragePct)
	}
	// Primary pair unaffected by the failure.
	if report.Status != model.ReportExcellent {
		t.Errorf("status = %s, want EXCELLENT", report.Status)
	}
}

func TestReconcileRecencyTieBreak(t *testing.T) {
	older := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)
	e := New(config.Default().Bands,
		obs("pos", 125800, model.ConfidenceHigh, 100, older),
		obs("financial", 127500, model.ConfidenceHigh, 100, newer),
	)

	report, err := e.Reconcile(context.Background(), "revenue", testPeriod(), "")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.RecommendedSource != "financial" {
		t.Errorf("recommended = %s, want financial (more recent)", report.RecommendedSource)
	}
}

func TestReconcileNoSources(t *testing.T) {
	e := New(config.Default().Bands)
	if _, err := e.Reconcile(context.Background(), "revenue", testPeriod(), ""); err == nil {
		t.Fatal("expected error with no sources")
	}
}

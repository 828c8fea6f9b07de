package quality

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/service"
)

// fakeReader returns canned counts, with optional per-call errors.
type fakeReader struct {
	coverageErr    error
	runErr         map[service.RunKind]error
	buckets        map[model.ConfidenceBucket]int
	reportCounts   map[model.ReportStatus]int
	runs           map[service.RunKind]*service.RunRecord
	active         int
	total          int
	trackedItems   int
	classified     int
	hidden         int
	bucketsErr     error
	reportCountErr error
}

func (f *fakeReader) CorrelationCoverage(_ context.Context) (int, int, error) {
	return f.active, f.total, f.coverageErr
}

func (f *fakeReader) CountCorrelationsByBucket(_ context.Context) (map[model.ConfidenceBucket]int, error) {
	return f.buckets, f.bucketsErr
}

func (f *fakeReader) CountTrackedItems(_ context.Context) (int, error) {
	return f.trackedItems, nil
}

func (f *fakeReader) CountActivityClassifications(_ context.Context) (int, error) {
	return f.classified, nil
}

func (f *fakeReader) CountPreviouslyHidden(_ context.Context) (int, error) {
	return f.hidden, nil
}

func (f *fakeReader) CountReportsByStatus(_ context.Context) (map[model.ReportStatus]int, error) {
	return f.reportCounts, f.reportCountErr
}

func (f *fakeReader) GetLatestRun(_ context.Context, kind service.RunKind) (*service.RunRecord, error) {
	if err := f.runErr[kind]; err != nil {
		return nil, err
	}
	if run, ok := f.runs[kind]; ok {
		return run, nil
	}
	return nil, common.ErrNotFound
}

func healthyReader() *fakeReader {
	now := time.Now()
	return &fakeReader{
		active:       290,
		total:        16259,
		trackedItems: 310,
		classified:   310,
		hidden:       12,
		buckets: map[model.ConfidenceBucket]int{
			model.BucketHigh:   200,
			model.BucketMedium: 70,
			model.BucketLow:    20,
		},
		reportCounts: map[model.ReportStatus]int{
			model.ReportExcellent: 3,
			model.ReportGood:      1,
		},
		runs: map[service.RunKind]*service.RunRecord{
			service.RunMatching:       {ID: "m1", Kind: service.RunMatching, CompletedAt: now, Processed: 16259, Failed: 2},
			service.RunClassification: {ID: "c1", Kind: service.RunClassification, CompletedAt: now, Processed: 310, Failed: 1},
		},
	}
}

func TestReportCoverageExactness(t *testing.T) {
	r := New(healthyReader())

	summary, err := r.Report(context.Background())
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	// Coverage must equal active/total*100 exactly, never an
	// independently computed figure.
	want := float64(290) / float64(16259) * 100 // about 1.78%
	if summary.CoveragePct != want {
		t.Errorf("coverage = %v, want %v", summary.CoveragePct, want)
	}
	if math.Abs(summary.CoveragePct-1.78) > 0.01 {
		t.Errorf("coverage sanity: got %.2f, want about 1.78", summary.CoveragePct)
	}
	if summary.Degraded {
		t.Errorf("healthy data should not be degraded: %v", summary.DegradedReasons)
	}
	if summary.RunErrors != 3 {
		t.Errorf("run errors = %d, want 3", summary.RunErrors)
	}
	if summary.PreviouslyHidden != 12 {
		t.Errorf("previously hidden = %d, want 12", summary.PreviouslyHidden)
	}
}

func TestReportDegradedWhenRunsMissing(t *testing.T) {
	reader := healthyReader()
	reader.runs = nil
	r := New(reader)

	summary, err := r.Report(context.Background())
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !summary.Degraded {
		t.Fatal("expected degraded summary with no recorded runs")
	}
	if len(summary.DegradedReasons) != 2 {
		t.Errorf("expected 2 degraded reasons, got %v", summary.DegradedReasons)
	}
}

func TestReportDegradedOnPartialFailure(t *testing.T) {
	reader := healthyReader()
	reader.bucketsErr = errors.New("table locked")
	r := New(reader)

	summary, err := r.Report(context.Background())
	if err != nil {
		t.Fatalf("Report must not fail on partial data: %v", err)
	}
	if !summary.Degraded {
		t.Fatal("expected degraded summary")
	}
	// The rest of the report is still populated.
	if summary.ActiveCorrelations != 290 {
		t.Errorf("active correlations = %d, want 290", summary.ActiveCorrelations)
	}
}

func TestReportDegradedWithEmptyCatalog(t *testing.T) {
	reader := healthyReader()
	reader.active = 0
	reader.total = 0
	r := New(reader)

	summary, err := r.Report(context.Background())
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !summary.Degraded {
		t.Fatal("expected degraded summary with empty catalog")
	}
	if summary.CoveragePct != 0 {
		t.Errorf("coverage = %v, want 0", summary.CoveragePct)
	}
}

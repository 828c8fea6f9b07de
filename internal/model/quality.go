package model

import "time"

// ConfidenceBucket labels a histogram bucket of correlation confidence.
type ConfidenceBucket string

// Confidence buckets, matching the matcher's acceptance thresholds.
const (
	BucketHigh     ConfidenceBucket = "HIGH"     // >= 80
	BucketMedium   ConfidenceBucket = "MEDIUM"   // 50-79
	BucketLow      ConfidenceBucket = "LOW"      // < 50
	BucketRejected ConfidenceBucket = "REJECTED" // audit-only entries
)

// QualitySummary aggregates system-wide data quality. It is a pure
// read-side aggregation over the correlation store and classifier output;
// Degraded is set instead of erroring when an upstream run has not
// completed yet.
type QualitySummary struct {
	GeneratedAt          time.Time
	ConfidenceHistogram  map[ConfidenceBucket]int
	ReportStatusCounts   map[ReportStatus]int
	TotalCatalogEntities int
	ActiveCorrelations   int
	PreviouslyHidden     int
	ClassifiedItems      int
	TrackedItems         int
	RunErrors            int
	CoveragePct          float64
	Degraded             bool
	DegradedReasons      []string
}

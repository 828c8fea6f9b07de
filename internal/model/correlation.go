package model

import (
	"fmt"
	"time"
)

// CorrelationType indicates how a catalog entity was linked to an
// equipment class.
type CorrelationType string

// Correlation types.
const (
	// CorrelationExact means the normalized catalog identifier equals a
	// known class identifier.
	CorrelationExact CorrelationType = "EXACT"
	// CorrelationClassOnly means the link was accepted on composite score
	// without an identifier match.
	CorrelationClassOnly CorrelationType = "CLASS_ONLY"
	// CorrelationLowConfidence means the link is queued for manual review.
	CorrelationLowConfidence CorrelationType = "LOW_CONFIDENCE"
	// CorrelationRejected means the best candidate scored below the floor;
	// kept for audit only, never active.
	CorrelationRejected CorrelationType = "REJECTED"
)

// CorrelationEntry links a catalog entity to an equipment class with a
// confidence score. Entries are immutable once written: re-evaluation
// retires the active version and inserts a new one, preserving history.
type CorrelationEntry struct {
	CreatedAt       time.Time
	SupersededAt    *time.Time
	ID              string // uuid assigned at insert
	CatalogEntityID string
	ClassID         string
	Type            CorrelationType
	Confidence      float64 // 0-100
	QuantityDelta   int     // catalog quantity minus tracked item count
	IsActive        bool
}

// Validate ensures the entry has valid data before it reaches storage.
func (c *CorrelationEntry) Validate() error {
	if c.CatalogEntityID == "" {
		return fmt.Errorf("correlation missing catalog entity ID")
	}
	if c.ClassID == "" && c.Type != CorrelationRejected {
		return fmt.Errorf("correlation for %s missing class ID", c.CatalogEntityID)
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("correlation confidence must be between 0 and 100, got %.2f", c.Confidence)
	}
	switch c.Type {
	case CorrelationExact, CorrelationClassOnly, CorrelationLowConfidence, CorrelationRejected:
	default:
		return fmt.Errorf("invalid correlation type %q", c.Type)
	}
	if c.IsActive && c.Type == CorrelationRejected {
		return fmt.Errorf("rejected correlation for %s cannot be active", c.CatalogEntityID)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kestrel-rentals/crosstally/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidEntity    = errors.New("invalid catalog entity")
	ErrInvalidEvent     = errors.New("invalid transaction event")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePeriod ensures a reporting window is ordered.
func validatePeriod(p model.Period) error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %v before %v", ErrInvalidDateRange, p.End, p.Start)
	}
	return nil
}

// validateCatalogEntities validates a slice of catalog entities.
func validateCatalogEntities(entities []model.CatalogEntity) error {
	if entities == nil {
		return fmt.Errorf("%w: entities", ErrNilParameter)
	}
	if len(entities) == 0 {
		return fmt.Errorf("%w: entities", ErrEmptySlice)
	}
	for i, e := range entities {
		if e.EntityID == "" {
			return fmt.Errorf("%w: entity at index %d missing ID", ErrInvalidEntity, i)
		}
		if e.DisplayName == "" {
			return fmt.Errorf("%w: entity %s missing display name", ErrInvalidEntity, e.EntityID)
		}
	}
	return nil
}

// validateTrackedItems validates a slice of tracked items.
func validateTrackedItems(items []model.TrackedItem) error {
	if items == nil {
		return fmt.Errorf("%w: items", ErrNilParameter)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrEmptySlice)
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item at index %d: %w", i, err)
		}
	}
	return nil
}

// validateEvents validates a slice of transaction events.
func validateEvents(events []model.TransactionEvent) error {
	if events == nil {
		return fmt.Errorf("%w: events", ErrNilParameter)
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: events", ErrEmptySlice)
	}
	for i, ev := range events {
		if ev.TagID == "" {
			return fmt.Errorf("%w: event at index %d missing tag ID", ErrInvalidEvent, i)
		}
		if ev.OccurredAt.IsZero() {
			return fmt.Errorf("%w: event at index %d missing timestamp", ErrInvalidEvent, i)
		}
		switch ev.Kind {
		case model.EventStatusChange, model.EventTouch:
		default:
			return fmt.Errorf("%w: event at index %d has unknown kind %q", ErrInvalidEvent, i, ev.Kind)
		}
	}
	return nil
}

// validateScorecardRows validates a slice of scorecard rows.
func validateScorecardRows(rows []model.ScorecardRow) error {
	if rows == nil {
		return fmt.Errorf("%w: rows", ErrNilParameter)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: rows", ErrEmptySlice)
	}
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("row at index %d: %w", i, err)
		}
	}
	return nil
}

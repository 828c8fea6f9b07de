// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogEntity is an equipment record in the point-of-sale system.
// It is created and updated by the catalog importer; the engine treats
// it as read-only input.
type CatalogEntity struct {
	UpdatedAt      time.Time
	EntityID       string // canonical identifier after normalization
	RawEntityID    string // identifier exactly as the source system sent it
	DisplayName    string
	Category       string
	Subcategory    string
	StoreCode      string
	RentalRate     decimal.Decimal
	QuantityOnHand int
	Active         bool
}

// EquipmentClass aggregates the tracked items that share a class_id.
// The matcher correlates catalog entities against these, never against
// individual tags.
type EquipmentClass struct {
	ClassID     string
	DisplayName string
	Category    string
	Subcategory string
	StoreCode   string
	ItemCount   int
}

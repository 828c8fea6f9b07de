package model

import (
	"fmt"
	"time"
)

// IdentifierKind classifies how a tracked item's tag identifier was issued.
// It is validated once at ingest so nothing downstream has to guess from
// the identifier's shape.
type IdentifierKind string

// Identifier kinds.
const (
	KindRFID    IdentifierKind = "RFID"
	KindQR      IdentifierKind = "QR"
	KindSticker IdentifierKind = "STICKER"
	KindBulk    IdentifierKind = "BULK"
	KindUnknown IdentifierKind = "UNKNOWN"
)

// ValidIdentifierKind reports whether k is one of the declared kinds.
func ValidIdentifierKind(k IdentifierKind) bool {
	switch k {
	case KindRFID, KindQR, KindSticker, KindBulk, KindUnknown:
		return true
	}
	return false
}

// ItemStatus is the denormalized operational state carried on a tracked
// item. It is a cache maintained by the tag system: the event log, not
// this field, is the source of truth for activity.
type ItemStatus string

// Item statuses.
const (
	StatusAvailable   ItemStatus = "AVAILABLE"
	StatusOnRent      ItemStatus = "ON_RENT"
	StatusMaintenance ItemStatus = "MAINTENANCE"
	StatusMissing     ItemStatus = "MISSING"
	StatusRetired     ItemStatus = "RETIRED"
)

// TrackedItem is a physical unit carrying an RFID/QR tag with a scan
// history. Each item belongs to exactly one equipment class.
type TrackedItem struct {
	LastStatusScanAt time.Time
	TagID            string
	ClassID          string
	DisplayName      string
	Category         string // business category, drives stale thresholds
	StoreCode        string
	Status           ItemStatus
	Kind             IdentifierKind
}

// Validate ensures the tracked item snapshot is usable.
func (t *TrackedItem) Validate() error {
	if t.TagID == "" {
		return fmt.Errorf("tracked item missing tag ID")
	}
	if t.ClassID == "" {
		return fmt.Errorf("tracked item %s missing class ID", t.TagID)
	}
	if !ValidIdentifierKind(t.Kind) {
		return fmt.Errorf("tracked item %s has invalid identifier kind %q", t.TagID, t.Kind)
	}
	return nil
}

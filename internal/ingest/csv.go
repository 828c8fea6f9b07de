// Package ingest parses the CSV exports the source systems produce and
// converts them into domain records. Identifier normalization and
// identifier-kind detection happen here, once, at the boundary; nothing
// downstream ever sees a raw identifier.
//
// Source systems emit dirty rows. A row with an unparseable field is
// skipped with a logged warning and counted, never fatal to the batch;
// only a missing required column or an unreadable stream aborts a read.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-rentals/crosstally/internal/common"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/normalize"
)

// header maps lowercased column names to their positions.
type header map[string]int

func readHeader(r *csv.Reader, required []string) (header, error) {
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("CSV missing required column %q", name)
		}
	}
	return h, nil
}

// get returns the named field, or "" when the column is absent.
func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "", "1", "true", "yes", "y", "active":
		return true
	}
	return false
}

// skipRow logs one discarded row.
func skipRow(export string, line int, reason string) {
	common.LogWarn("Skipping malformed row", common.Fields{
		"export": export,
		"line":   line,
		"reason": reason,
	})
}

// readRow reads the next record. A row-level CSV parse error is reported
// through rowErr so the caller can skip it; stream errors are fatal.
func readRow(cr *csv.Reader) (record []string, done bool, rowErr, err error) {
	record, err = cr.Read()
	if err == io.EOF {
		return nil, true, nil, nil
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, false, err, nil
	}
	if err != nil {
		return nil, false, nil, err
	}
	return record, false, nil, nil
}

// ReadCatalog parses a catalog export. Entity identifiers come out
// canonical, with the raw form preserved for audit. The second return is
// the number of malformed rows skipped.
func ReadCatalog(r io.Reader) ([]model.CatalogEntity, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, []string{"entity_id", "display_name"})
	if err != nil {
		return nil, 0, err
	}

	var (
		entities []model.CatalogEntity
		skipped  int
	)
	for line := 2; ; line++ {
		record, done, rowErr, err := readRow(cr)
		if err != nil {
			return nil, skipped, fmt.Errorf("catalog line %d: %w", line, err)
		}
		if done {
			break
		}
		if rowErr != nil {
			skipped++
			skipRow("catalog", line, rowErr.Error())
			continue
		}

		rawID := h.get(record, "entity_id")
		entity := model.CatalogEntity{
			EntityID:    normalize.Identifier(rawID),
			RawEntityID: rawID,
			DisplayName: h.get(record, "display_name"),
			Category:    h.get(record, "category"),
			Subcategory: h.get(record, "subcategory"),
			StoreCode:   h.get(record, "store_code"),
			Active:      parseBool(h.get(record, "active")),
			RentalRate:  decimal.Zero,
		}
		if entity.EntityID == "" {
			skipped++
			skipRow("catalog", line, "empty entity identifier")
			continue
		}

		if qty := h.get(record, "quantity_on_hand"); qty != "" {
			n, convErr := strconv.Atoi(qty)
			if convErr != nil {
				skipped++
				skipRow("catalog", line, fmt.Sprintf("bad quantity %q", qty))
				continue
			}
			entity.QuantityOnHand = n
		}
		if rate := h.get(record, "rental_rate"); rate != "" {
			d, convErr := decimal.NewFromString(rate)
			if convErr != nil {
				skipped++
				skipRow("catalog", line, fmt.Sprintf("bad rental rate %q", rate))
				continue
			}
			entity.RentalRate = d
		}
		if updated := h.get(record, "updated_at"); updated != "" {
			t, convErr := parseTime(updated)
			if convErr != nil {
				skipped++
				skipRow("catalog", line, convErr.Error())
				continue
			}
			entity.UpdatedAt = t
		}

		entities = append(entities, entity)
	}
	return entities, skipped, nil
}

// ReadTrackedItems parses a tag-system inventory export. When the export
// does not declare an identifier kind, the kind is detected from the
// canonical tag identifier's shape.
func ReadTrackedItems(r io.Reader) ([]model.TrackedItem, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, []string{"tag_id", "class_id"})
	if err != nil {
		return nil, 0, err
	}

	var (
		items   []model.TrackedItem
		skipped int
	)
	for line := 2; ; line++ {
		record, done, rowErr, err := readRow(cr)
		if err != nil {
			return nil, skipped, fmt.Errorf("items line %d: %w", line, err)
		}
		if done {
			break
		}
		if rowErr != nil {
			skipped++
			skipRow("items", line, rowErr.Error())
			continue
		}

		item := model.TrackedItem{
			TagID:       normalize.Identifier(h.get(record, "tag_id")),
			ClassID:     h.get(record, "class_id"),
			DisplayName: h.get(record, "display_name"),
			Category:    h.get(record, "category"),
			StoreCode:   h.get(record, "store_code"),
			Status:      model.ItemStatus(strings.ToUpper(h.get(record, "status"))),
		}
		if item.Status == "" {
			item.Status = model.StatusAvailable
		}

		if kind := strings.ToUpper(h.get(record, "identifier_kind")); kind != "" {
			item.Kind = model.IdentifierKind(kind)
		} else {
			item.Kind = normalize.Kind(item.TagID)
		}

		if scan := h.get(record, "last_status_scan_at"); scan != "" {
			t, convErr := parseTime(scan)
			if convErr != nil {
				skipped++
				skipRow("items", line, convErr.Error())
				continue
			}
			item.LastStatusScanAt = t
		}

		if err := item.Validate(); err != nil {
			skipped++
			skipRow("items", line, err.Error())
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// ReadEvents parses a scan-event export into append-only log entries.
func ReadEvents(r io.Reader) ([]model.TransactionEvent, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, []string{"tag_id", "event_kind", "occurred_at"})
	if err != nil {
		return nil, 0, err
	}

	var (
		events  []model.TransactionEvent
		skipped int
	)
	for line := 2; ; line++ {
		record, done, rowErr, err := readRow(cr)
		if err != nil {
			return nil, skipped, fmt.Errorf("events line %d: %w", line, err)
		}
		if done {
			break
		}
		if rowErr != nil {
			skipped++
			skipRow("events", line, rowErr.Error())
			continue
		}

		occurredAt, convErr := parseTime(h.get(record, "occurred_at"))
		if convErr != nil {
			skipped++
			skipRow("events", line, convErr.Error())
			continue
		}

		ev := model.TransactionEvent{
			TagID:       normalize.Identifier(h.get(record, "tag_id")),
			Kind:        model.EventKind(strings.ToUpper(h.get(record, "event_kind"))),
			OccurredAt:  occurredAt,
			ContractRef: h.get(record, "contract_ref"),
			RecordedBy:  h.get(record, "recorded_by"),
		}
		switch ev.Kind {
		case model.EventStatusChange, model.EventTouch:
		default:
			skipped++
			skipRow("events", line, fmt.Sprintf("unknown event kind %q", ev.Kind))
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

// ReadScorecard parses periodic metric rows from the financial, POS, or
// tag reporting exports.
func ReadScorecard(r io.Reader, source string) ([]model.ScorecardRow, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, []string{"metric", "amount", "occurred_at"})
	if err != nil {
		return nil, 0, err
	}

	var (
		rows    []model.ScorecardRow
		skipped int
	)
	for line := 2; ; line++ {
		record, done, rowErr, err := readRow(cr)
		if err != nil {
			return nil, skipped, fmt.Errorf("scorecard line %d: %w", line, err)
		}
		if done {
			break
		}
		if rowErr != nil {
			skipped++
			skipRow("scorecard", line, rowErr.Error())
			continue
		}

		amount, convErr := decimal.NewFromString(h.get(record, "amount"))
		if convErr != nil {
			skipped++
			skipRow("scorecard", line, fmt.Sprintf("bad amount %q", h.get(record, "amount")))
			continue
		}
		occurredAt, convErr := parseTime(h.get(record, "occurred_at"))
		if convErr != nil {
			skipped++
			skipRow("scorecard", line, convErr.Error())
			continue
		}

		row := model.ScorecardRow{
			Source:     source,
			Metric:     strings.ToLower(h.get(record, "metric")),
			StoreCode:  h.get(record, "store_code"),
			Amount:     amount,
			OccurredAt: occurredAt,
		}
		// Exports that carry their own source column may override the
		// caller's default.
		if s := h.get(record, "source"); s != "" {
			row.Source = strings.ToLower(s)
		}
		if err := row.Validate(); err != nil {
			skipped++
			skipRow("scorecard", line, err.Error())
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conveyorworks/conveyor/internal/extraction"
	"github.com/conveyorworks/conveyor/internal/masterdata"
)

// dateLayouts are the delivery date formats accepted from extraction output.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"January 2, 2006",
	"2 January 2006",
}

const defaultUnit = "KPL"

// Engine validates and repairs extraction candidates against a master data
// snapshot. It holds only configuration; Validate has no side effects.
type Engine struct {
	// FuzzyThreshold is the minimum normalized similarity for tier-three
	// resolution. Tunable; ties at the best score are always rejected.
	FuzzyThreshold float64
	// ArrivalDate anchors the "delivery date not in the past" check and is
	// supplied per call via the candidate's source email.
}

// NewEngine creates a validation engine with the given fuzzy threshold.
func NewEngine(fuzzyThreshold float64) *Engine {
	return &Engine{FuzzyThreshold: fuzzyThreshold}
}

// Validate reconciles one candidate against master data. arrivedAt is the
// source email's arrival timestamp, anchoring date normalization.
func (e *Engine) Validate(candidate extraction.Candidate, snapshot *masterdata.Snapshot, arrivedAt time.Time) Order {
	order := Order{
		ID:            deterministicID(candidate),
		SourceEmailID: candidate.SourceEmailID,
		ContactPerson: candidate.ContactPerson,
		Status:        StatusClean,
		Notes:         []string{},
		Lines:         []Line{},
	}

	repaired := false

	customer, tier := snapshot.ResolveCustomer(candidate.CustomerName, e.FuzzyThreshold)
	if customer == nil {
		order.Status = StatusRejected
		order.Notes = append(order.Notes, ReasonCustomerUnresolved)
		if tier == masterdata.MatchAmbiguous {
			order.Notes = append(order.Notes, fmt.Sprintf("customer_ambiguous:%s", candidate.CustomerName))
		}
		return order
	}

	order.CustomerNo = customer.No
	order.CustomerName = customer.Name
	if tier != masterdata.MatchExact {
		repaired = true
		order.Notes = append(order.Notes,
			fmt.Sprintf("customer_resolved_%s:%s", tier, candidate.CustomerName))
	}

	for _, hint := range candidate.Items {
		line, note, ok := e.resolveLine(hint, snapshot)
		if !ok {
			repaired = true
			order.Notes = append(order.Notes, note)
			continue
		}
		if note != "" {
			repaired = true
			order.Notes = append(order.Notes, note)
		}
		order.Lines = append(order.Lines, line)
	}

	if len(order.Lines) == 0 {
		order.Status = StatusRejected
		order.Notes = append(order.Notes, ReasonNoResolvableItems)
		return order
	}

	date, note := normalizeDate(candidate.RequestedDeliveryDate, arrivedAt)
	order.RequestedDeliveryDate = date
	if note != "" {
		repaired = true
		order.Notes = append(order.Notes, note)
	}

	if repaired {
		order.Status = StatusRepaired
	}
	return order
}

// resolveLine resolves one raw line. ok=false drops the line with the
// returned note; ok=true with a non-empty note means the line was repaired.
func (e *Engine) resolveLine(hint extraction.LineHint, snapshot *masterdata.Snapshot) (Line, string, bool) {
	desc := lineDescription(hint)

	qty, qtyOK := coerceQuantity(hint.Quantity)
	if !qtyOK {
		return Line{}, fmt.Sprintf("item_dropped:%s", desc), false
	}

	item, tier := snapshot.ResolveItem(hint.ItemNumber, hint.Description, e.FuzzyThreshold)
	if item == nil {
		return Line{}, fmt.Sprintf("item_dropped:%s", desc), false
	}

	unit := strings.TrimSpace(hint.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	line := Line{
		ItemNo:      item.No,
		Description: item.Description,
		Quantity:    qty,
		Unit:        unit,
	}

	if tier != masterdata.MatchExact {
		return line, fmt.Sprintf("item_resolved_%s:%s", tier, desc), true
	}
	return line, "", true
}

func lineDescription(hint extraction.LineHint) string {
	if hint.Description != "" {
		return hint.Description
	}
	return hint.ItemNumber
}

// coerceQuantity parses a free-text quantity like "3", "3.5", or "3 pieces"
// into a positive number.
func coerceQuantity(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	end := 0
	for end < len(raw) && (raw[end] >= '0' && raw[end] <= '9' || raw[end] == '.' || raw[end] == ',') {
		end++
	}

	numeric := strings.ReplaceAll(raw[:end], ",", ".")
	qty, err := strconv.ParseFloat(numeric, 64)
	if err != nil || qty <= 0 {
		return 0, false
	}
	return qty, true
}

// normalizeDate parses the requested delivery date and enforces that it is
// not before the email's arrival date. Anything else becomes "unspecified"
// with a repair note — never a rejection.
func normalizeDate(raw string, arrivedAt time.Time) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DateUnspecified, "date_unspecified:none_given"
	}

	var parsed time.Time
	ok := false
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		return DateUnspecified, fmt.Sprintf("date_unspecified:unparsable:%s", raw)
	}

	arrival := arrivedAt.UTC().Truncate(24 * time.Hour)
	if parsed.Before(arrival) {
		return DateUnspecified, fmt.Sprintf("date_unspecified:past:%s", raw)
	}

	return parsed.Format("2006-01-02"), ""
}

// deterministicID derives the order identity from the candidate content so
// that re-validating the same candidate yields byte-identical output.
func deterministicID(candidate extraction.Candidate) uuid.UUID {
	payload, _ := json.Marshal(candidate)
	return uuid.NewSHA1(uuid.NameSpaceOID, payload)
}

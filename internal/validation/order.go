// Package validation implements the order validation and repair engine.
// Validation is a pure function of a raw candidate and the master data
// snapshot, so re-validating the same inputs always produces identical
// output — a property the audit trail and replay tooling rely on.
package validation

import (
	"github.com/google/uuid"
)

// Status classifies a validated order.
type Status string

const (
	// StatusClean means every field matched master data exactly with no repairs.
	StatusClean Status = "clean"
	// StatusRepaired means at least one deterministic correction was applied
	// (alias or fuzzy resolution, dropped line, date fallback).
	StatusRepaired Status = "repaired"
	// StatusRejected means the order must never reach the posting gateway.
	StatusRejected Status = "rejected"
)

// Rejection reason codes.
const (
	ReasonCustomerUnresolved = "customer_unresolved"
	ReasonNoResolvableItems  = "no_resolvable_items"
)

// DateUnspecified replaces delivery dates that are missing, unparsable,
// or in the past relative to the email's arrival.
const DateUnspecified = "unspecified"

// Line is one resolved order line. ItemNo always resolves in master data
// for clean and repaired orders.
type Line struct {
	ItemNo      string  `json:"item_no"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// Order is the validated form of an extraction candidate.
type Order struct {
	ID                    uuid.UUID `json:"id"`
	SourceEmailID         string    `json:"source_email_id"`
	CustomerNo            string    `json:"customer_no"`
	CustomerName          string    `json:"customer_name"`
	ContactPerson         string    `json:"contact_person"`
	Lines                 []Line    `json:"lines"`
	RequestedDeliveryDate string    `json:"requested_delivery_date"`
	Status                Status    `json:"status"`
	Notes                 []string  `json:"notes"`
}

// Postable reports whether the order may be handed to the posting gateway.
func (o *Order) Postable() bool {
	return o.Status == StatusClean || o.Status == StatusRepaired
}

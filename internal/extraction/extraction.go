// Package extraction defines the order extraction boundary. The extraction
// collaborator turns one email's text and attachments into zero or more raw
// order candidates; the call itself is an opaque classifier consumed through
// the Adapter interface.
package extraction

import (
	"context"
	"errors"

	"github.com/conveyorworks/conveyor/internal/mail"
)

// ErrUnavailable indicates the extraction collaborator itself is unusable
// (configuration, authorization, or client construction failure) as opposed
// to a single email being unprocessable. The orchestrator treats it as
// systemic when it occurs on the first email of a run.
var ErrUnavailable = errors.New("extraction collaborator unavailable")

// LineHint is one raw line item as extracted, before validation. Quantity
// is kept as free text; coercion belongs to the validation engine.
type LineHint struct {
	ItemNumber  string `json:"item_number"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
}

// Candidate is one raw order extracted from an email. Fields are free-text
// or near-structured; nothing is guaranteed to resolve against master data.
type Candidate struct {
	SourceEmailID         string     `json:"source_email_id"`
	CustomerName          string     `json:"customer_name"`
	ContactPerson         string     `json:"contact_person"`
	Items                 []LineHint `json:"items"`
	RequestedDeliveryDate string     `json:"requested_delivery_date"`
	Confidence            float64    `json:"confidence"`
}

// Result carries the candidates extracted from one email plus the
// collaborator's human-readable summary. The summary must end with the
// workflow completion marker; the orchestrator's handoff protocol enforces
// this at the boundary.
type Result struct {
	Candidates []Candidate
	Summary    string
}

// CatalogCustomer and CatalogItem describe master data to the extraction
// prompt so the model repairs toward known records instead of inventing.
type CatalogCustomer struct {
	No   string
	Name string
}

type CatalogItem struct {
	No          string
	Description string
}

// Catalog is the master data listing supplied to each extraction call.
type Catalog struct {
	Customers []CatalogCustomer
	Items     []CatalogItem
}

// Adapter extracts order candidates from a single email.
type Adapter interface {
	Extract(ctx context.Context, email mail.EmailRecord, catalog Catalog) (*Result, error)
}

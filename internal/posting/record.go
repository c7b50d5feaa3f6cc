// Package posting implements the gateway that submits validated orders to
// the ERP exactly once per order identity, with retry and idempotency
// tracking.
package posting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/conveyorworks/conveyor/internal/validation"
)

// Status is the terminal state of a posting attempt.
type Status string

const (
	StatusPosted           Status = "posted"
	StatusFailed           Status = "failed"
	StatusSkippedDuplicate Status = "skipped-duplicate"
)

// ErrNotFound indicates no posting record exists for an idempotency key.
var ErrNotFound = errors.New("posting record not found")

// ErrNotPostable indicates a rejected order reached the gateway, which the
// orchestrator must never allow.
var ErrNotPostable = errors.New("order is not postable")

// Record tracks one order identity across posting attempts. Records persist
// beyond the run so overlapping and subsequent runs observe earlier
// submissions.
type Record struct {
	IdempotencyKey string    `json:"idempotency_key"`
	SourceEmailID  string    `json:"source_email_id"`
	ERPOrderNumber string    `json:"erp_order_number"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key derives the stable idempotency key for an order: a SHA-256 digest of
// the source email identifier, the line items sorted by item number and
// quantity, and the delivery date. Line order in the input does not affect
// the key.
func Key(order *validation.Order) string {
	lines := make([]string, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, fmt.Sprintf("%s:%s",
			l.ItemNo, strconv.FormatFloat(l.Quantity, 'f', -1, 64)))
	}
	sort.Strings(lines)

	payload := strings.Join([]string{
		order.SourceEmailID,
		strings.Join(lines, ","),
		order.RequestedDeliveryDate,
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// RecordStore persists posting records keyed by idempotency key.
type RecordStore interface {
	// Find returns the record for key, or ErrNotFound.
	Find(ctx context.Context, key string) (*Record, error)
	// Save inserts or updates the record.
	Save(ctx context.Context, record *Record) error
}

// Package mail defines the mail collaborator boundary for the workflow.
// The transport itself (IMAP, Graph, Gmail) lives outside the core; the
// orchestrator consumes it as a fallible, retryless black box.
package mail

import (
	"context"
	"time"
)

// EmailRecord is one ingested email. Records are immutable once fetched
// and owned by the orchestrator for the duration of a run.
type EmailRecord struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments"`
	ReceivedAt  time.Time `json:"received_at"`
}

// DeliveryResult reports the outcome of a Send call.
type DeliveryResult struct {
	MessageID string `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// Collaborator is the narrow surface the orchestrator consumes.
type Collaborator interface {
	// FetchBatch returns up to maxResults pending emails in arrival order.
	FetchBatch(ctx context.Context, maxResults int) ([]EmailRecord, error)
	// Send delivers a plain-text message.
	Send(ctx context.Context, to, subject, body string) (*DeliveryResult, error)
}

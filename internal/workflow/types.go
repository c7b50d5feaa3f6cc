// Package workflow implements the orchestration core: a state machine that
// drives Ingest → Identify/Validate → Post across a batch of emails with
// explicit handoffs, partial-failure tolerance, and idempotent posting.
package workflow

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the orchestrator's position in the stage sequence. FAILED is
// absorbing and reachable from any non-terminal state on a systemic error.
type RunState string

const (
	StatePending     RunState = "PENDING"
	StateIngesting   RunState = "INGESTING"
	StateIdentifying RunState = "IDENTIFYING"
	StatePosting     RunState = "POSTING"
	StateCompleted   RunState = "COMPLETED"
	StateFailed      RunState = "FAILED"
)

// Stage names a pipeline stage for outcome records.
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageIdentify Stage = "identify"
	StagePost     Stage = "post"
)

// Outcome is the result of one stage for one email.
type Outcome string

const (
	OutcomeIngested         Outcome = "ingested"
	OutcomeIdentified       Outcome = "identified"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeRejected         Outcome = "rejected"
	OutcomePosted           Outcome = "posted"
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeFailed           Outcome = "failed"
)

// StageOutcome records one stage result for one email. Every ingested email
// accumulates one outcome per stage it reaches; the last one is terminal.
type StageOutcome struct {
	EmailID string    `json:"email_id"`
	Stage   Stage     `json:"stage"`
	Outcome Outcome   `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// OverallStatus summarizes a completed run.
type OverallStatus string

const (
	StatusSuccess        OverallStatus = "success"
	StatusPartialFailure OverallStatus = "partial-failure"
	StatusFailed         OverallStatus = "failed"
)

// Run is one workflow execution. It is created at run start, appended to by
// the orchestrator, finalized at run end, and never mutated afterwards.
type Run struct {
	ID          uuid.UUID      `json:"id"`
	State       RunState       `json:"state"`
	Status      OverallStatus  `json:"status,omitempty"`
	Outcomes    []StageOutcome `json:"outcomes"`
	Report      *Report        `json:"report,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func (r *Run) record(emailID string, stage Stage, outcome Outcome, detail string) {
	r.Outcomes = append(r.Outcomes, StageOutcome{
		EmailID: emailID,
		Stage:   stage,
		Outcome: outcome,
		Detail:  detail,
		At:      time.Now().UTC(),
	})
}

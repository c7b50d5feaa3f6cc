package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Report aggregates a run's per-email outcomes into batch totals. It is
// computed once at finalization and embedded in the persisted run.
type Report struct {
	RunID             string        `json:"run_id"`
	Status            OverallStatus `json:"status"`
	EmailsIngested    int           `json:"emails_ingested"`
	OrdersIdentified  int           `json:"orders_identified"`
	OrdersRejected    int           `json:"orders_rejected"`
	EmailsSkipped     int           `json:"emails_skipped"`
	OrdersPosted      int           `json:"orders_posted"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	PostingsFailed    int           `json:"postings_failed"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at"`
	Failures          []string      `json:"failures,omitempty"`
}

// BuildReport tallies outcomes for a run that has reached a terminal state.
func BuildReport(run *Run) *Report {
	report := &Report{
		RunID:     run.ID.String(),
		Status:    run.Status,
		StartedAt: run.StartedAt,
	}
	if run.CompletedAt != nil {
		report.CompletedAt = *run.CompletedAt
	}

	for _, o := range run.Outcomes {
		switch o.Stage {
		case StageIngest:
			if o.Outcome == OutcomeIngested {
				report.EmailsIngested++
			}
		case StageIdentify:
			switch o.Outcome {
			case OutcomeIdentified:
				report.OrdersIdentified++
			case OutcomeRejected:
				report.OrdersRejected++
			case OutcomeSkipped:
				report.EmailsSkipped++
			}
		case StagePost:
			switch o.Outcome {
			case OutcomePosted:
				report.OrdersPosted++
			case OutcomeSkippedDuplicate:
				report.DuplicatesSkipped++
			case OutcomeFailed:
				report.PostingsFailed++
				report.Failures = append(report.Failures, fmt.Sprintf("%s: %s", o.EmailID, o.Detail))
			case OutcomeSkipped:
				report.EmailsSkipped++
			}
		}
	}

	return report
}

// Summary renders the report as the plain-text body of the run notification.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order processing run %s finished: %s\n\n", r.RunID, r.Status)
	fmt.Fprintf(&b, "Emails ingested:    %d\n", r.EmailsIngested)
	fmt.Fprintf(&b, "Orders identified:  %d\n", r.OrdersIdentified)
	fmt.Fprintf(&b, "Orders rejected:    %d\n", r.OrdersRejected)
	fmt.Fprintf(&b, "Emails skipped:     %d\n", r.EmailsSkipped)
	fmt.Fprintf(&b, "Orders posted:      %d\n", r.OrdersPosted)
	fmt.Fprintf(&b, "Duplicates skipped: %d\n", r.DuplicatesSkipped)
	fmt.Fprintf(&b, "Postings failed:    %d\n", r.PostingsFailed)

	if len(r.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	if !r.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "\nDuration: %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}

	return b.String()
}

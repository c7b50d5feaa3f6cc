package workflow_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conveyorworks/conveyor/internal/workflow"
)

func TestBuildReport(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)

	run := &workflow.Run{
		ID:          uuid.New(),
		State:       workflow.StateCompleted,
		Status:      workflow.StatusPartialFailure,
		StartedAt:   started,
		CompletedAt: &completed,
		Outcomes: []workflow.StageOutcome{
			{EmailID: "e1", Stage: workflow.StageIngest, Outcome: workflow.OutcomeIngested},
			{EmailID: "e2", Stage: workflow.StageIngest, Outcome: workflow.OutcomeIngested},
			{EmailID: "e3", Stage: workflow.StageIngest, Outcome: workflow.OutcomeIngested},
			{EmailID: "e4", Stage: workflow.StageIngest, Outcome: workflow.OutcomeIngested},
			{EmailID: "e1", Stage: workflow.StageIdentify, Outcome: workflow.OutcomeIdentified},
			{EmailID: "e2", Stage: workflow.StageIdentify, Outcome: workflow.OutcomeIdentified},
			{EmailID: "e3", Stage: workflow.StageIdentify, Outcome: workflow.OutcomeRejected, Detail: "customer_unresolved"},
			{EmailID: "e4", Stage: workflow.StageIdentify, Outcome: workflow.OutcomeSkipped, Detail: "low_confidence"},
			{EmailID: "e1", Stage: workflow.StagePost, Outcome: workflow.OutcomePosted, Detail: "SO-1001"},
			{EmailID: "e2", Stage: workflow.StagePost, Outcome: workflow.OutcomeFailed, Detail: "permanent erp error"},
		},
	}

	report := workflow.BuildReport(run)

	if report.RunID != run.ID.String() {
		t.Errorf("run id: got %s", report.RunID)
	}
	if report.Status != workflow.StatusPartialFailure {
		t.Errorf("status: got %s", report.Status)
	}
	if report.EmailsIngested != 4 {
		t.Errorf("ingested: got %d, want 4", report.EmailsIngested)
	}
	if report.OrdersIdentified != 2 {
		t.Errorf("identified: got %d, want 2", report.OrdersIdentified)
	}
	if report.OrdersRejected != 1 {
		t.Errorf("rejected: got %d, want 1", report.OrdersRejected)
	}
	if report.EmailsSkipped != 1 {
		t.Errorf("skipped: got %d, want 1", report.EmailsSkipped)
	}
	if report.OrdersPosted != 1 {
		t.Errorf("posted: got %d, want 1", report.OrdersPosted)
	}
	if report.PostingsFailed != 1 {
		t.Errorf("failed: got %d, want 1", report.PostingsFailed)
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0], "e2") {
		t.Errorf("failures: got %v", report.Failures)
	}
}

func TestReportSummary(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Second)

	report := &workflow.Report{
		RunID:          "run-1",
		Status:         workflow.StatusPartialFailure,
		EmailsIngested: 3,
		OrdersPosted:   2,
		PostingsFailed: 1,
		StartedAt:      started,
		CompletedAt:    completed,
		Failures:       []string{"e2: permanent erp error"},
	}

	summary := report.Summary()

	for _, want := range []string{
		"run-1",
		"partial-failure",
		"Emails ingested:    3",
		"Orders posted:      2",
		"Postings failed:    1",
		"e2: permanent erp error",
		"Duration: 5s",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

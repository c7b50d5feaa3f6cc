package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/conveyorworks/conveyor/internal/extraction"
	"github.com/conveyorworks/conveyor/internal/workflow"
)

func TestCompleted(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    bool
	}{
		{"marker only", extraction.CompletionMarker, true},
		{"marker suffix", "Extracted one order. " + extraction.CompletionMarker, true},
		{"trailing whitespace", "Extracted one order. " + extraction.CompletionMarker + "\n  ", true},
		{"missing", "Extracted one order.", false},
		{"marker mid-text", extraction.CompletionMarker + " But more follows.", false},
		{"empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := workflow.Completed(tc.summary); got != tc.want {
				t.Errorf("Completed(%q): got %v, want %v", tc.summary, got, tc.want)
			}
		})
	}
}

func TestExchangeCompletesFirstTry(t *testing.T) {
	calls := 0
	err := workflow.Exchange(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		return extraction.CompletionMarker, nil
	})
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestExchangeRetriesUntilCompleted(t *testing.T) {
	calls := 0
	err := workflow.Exchange(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "still working", nil
		}
		return extraction.CompletionMarker, nil
	})
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestExchangeExhaustsBound(t *testing.T) {
	calls := 0
	err := workflow.Exchange(context.Background(), 2, func(ctx context.Context) (string, error) {
		calls++
		return "never done", nil
	})
	if !errors.Is(err, workflow.ErrIncompleteHandoff) {
		t.Errorf("got %v, want ErrIncompleteHandoff", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestExchangePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := workflow.Exchange(context.Background(), 3, func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want propagated error", err)
	}
}

func TestExchangeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := workflow.Exchange(ctx, 3, func(ctx context.Context) (string, error) {
		t.Error("fn must not run after cancellation")
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

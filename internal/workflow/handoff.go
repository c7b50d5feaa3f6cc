package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/conveyorworks/conveyor/internal/extraction"
)

// ErrIncompleteHandoff indicates a collaborator never produced a completed
// summary within the exchange bound. It marks a stage-level failure for the
// affected item, not a crash: the predecessor of this pipeline parsed
// free-text completion phrases out of agent chatter, and this bound is what
// keeps an open-ended exchange from stalling the run.
var ErrIncompleteHandoff = errors.New("handoff incomplete: no completion marker")

// Completed reports whether a collaborator summary carries the completion
// marker.
func Completed(summary string) bool {
	return strings.HasSuffix(strings.TrimSpace(summary), extraction.CompletionMarker)
}

// Exchange invokes fn up to limit times until it yields a completed
// summary. The typed result of the final successful call is returned by fn
// via closure; Exchange only adjudicates the marker.
func Exchange(ctx context.Context, limit int, fn func(ctx context.Context) (string, error)) error {
	if limit <= 0 {
		limit = 1
	}

	for attempt := 0; attempt < limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, err := fn(ctx)
		if err != nil {
			return err
		}
		if Completed(summary) {
			return nil
		}
	}

	return ErrIncompleteHandoff
}

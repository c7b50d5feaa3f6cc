package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conveyorworks/conveyor/internal/extraction"
	"github.com/conveyorworks/conveyor/internal/mail"
	"github.com/conveyorworks/conveyor/internal/masterdata"
	"github.com/conveyorworks/conveyor/internal/posting"
	"github.com/conveyorworks/conveyor/internal/validation"
)

// Poster is the posting gateway surface the orchestrator consumes.
type Poster interface {
	Post(ctx context.Context, order *validation.Order) (*posting.Record, error)
}

// RunStore persists workflow runs.
type RunStore interface {
	Create(ctx context.Context, run *Run) error
	Finalize(ctx context.Context, run *Run) error
}

// OrderStore persists validated orders for audit and replay.
type OrderStore interface {
	Save(ctx context.Context, order *validation.Order, idempotencyKey string) error
}

// Config holds orchestrator parameters.
type Config struct {
	// BatchSize bounds how many emails one run ingests.
	BatchSize int
	// Workers bounds concurrent extraction+validation during IDENTIFYING.
	Workers int
	// FuzzyThreshold is passed to the validation engine.
	FuzzyThreshold float64
	// MinConfidence discards extraction candidates below this score; an
	// email whose candidates are all discarded is skipped.
	MinConfidence float64
	// MaxHandoffExchanges bounds collaborator exchanges per handoff before
	// the item is treated as a stage-level failure.
	MaxHandoffExchanges int
	// NotifyAddress, when set, receives a run summary email on completion.
	NotifyAddress string
}

// Orchestrator sequences one workflow run across its three stages.
type Orchestrator struct {
	mail    mail.Collaborator
	adapter extraction.Adapter
	master  masterdata.Loader
	gateway Poster
	runs    RunStore
	orders  OrderStore
	engine  *validation.Engine
	cfg     Config
	logger  *slog.Logger
}

// New creates an orchestrator.
func New(
	mailc mail.Collaborator,
	adapter extraction.Adapter,
	master masterdata.Loader,
	gateway Poster,
	runs RunStore,
	orders OrderStore,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxHandoffExchanges <= 0 {
		cfg.MaxHandoffExchanges = 2
	}

	return &Orchestrator{
		mail:    mailc,
		adapter: adapter,
		master:  master,
		gateway: gateway,
		runs:    runs,
		orders:  orders,
		engine:  validation.NewEngine(cfg.FuzzyThreshold),
		cfg:     cfg,
		logger:  logger.With("system", "workflow"),
	}
}

// identifyResult carries one email's IDENTIFYING output back to the
// orchestrator in ingest order.
type identifyResult struct {
	email    mail.EmailRecord
	orders   []*validation.Order
	outcome  Outcome
	detail   string
	systemic error
}

// Execute runs the full state machine for one batch. The returned Run is
// finalized; err is non-nil only when the run ended in FAILED.
func (o *Orchestrator) Execute(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		State:     StatePending,
		Outcomes:  []StageOutcome{},
		StartedAt: time.Now().UTC(),
	}

	if err := o.runs.Create(ctx, run); err != nil {
		return run, o.fail(ctx, run, fmt.Errorf("create run: %w", err))
	}

	o.logger.Info("run started", "run_id", run.ID)

	// INGESTING
	run.State = StateIngesting
	emails, err := o.ingest(ctx, run)
	if err != nil {
		return run, o.fail(ctx, run, err)
	}
	if len(emails) == 0 {
		return run, o.complete(ctx, run)
	}

	if err := ctx.Err(); err != nil {
		return run, o.fail(ctx, run, err)
	}

	// IDENTIFYING
	run.State = StateIdentifying

	snapshot, err := o.master.Load(ctx)
	if err != nil {
		return run, o.fail(ctx, run, fmt.Errorf("load master data: %w", err))
	}

	results, err := o.identify(ctx, run, emails, snapshot)
	if err != nil {
		return run, o.fail(ctx, run, err)
	}

	if err := ctx.Err(); err != nil {
		return run, o.fail(ctx, run, err)
	}

	// POSTING
	run.State = StatePosting
	o.post(ctx, run, results)

	if err := ctx.Err(); err != nil {
		return run, o.fail(ctx, run, err)
	}

	return run, o.complete(ctx, run)
}

// ingest fetches the batch. A collaborator error fails the run only when
// nothing was retrieved; a partial batch proceeds.
func (o *Orchestrator) ingest(ctx context.Context, run *Run) ([]mail.EmailRecord, error) {
	emails, err := o.mail.FetchBatch(ctx, o.cfg.BatchSize)
	if err != nil && len(emails) == 0 {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if err != nil {
		o.logger.Warn("proceeding with partial batch", "count", len(emails), "error", err)
	}

	for _, e := range emails {
		run.record(e.ID, StageIngest, OutcomeIngested, "")
	}

	o.logger.Info("ingest complete", "run_id", run.ID, "emails", len(emails))
	return emails, nil
}

// identify extracts and validates every email independently on a bounded
// worker pool, then re-orders results by ingest sequence. A systemic
// extraction failure on the very first email fails the run; later systemic
// failures skip that email only.
func (o *Orchestrator) identify(
	ctx context.Context,
	run *Run,
	emails []mail.EmailRecord,
	snapshot *masterdata.Snapshot,
) ([]identifyResult, error) {
	catalog := buildCatalog(snapshot)
	results := make([]identifyResult, len(emails))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for i := range emails {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			res := o.identifyEmail(gctx, emails[i], catalog, snapshot)
			if res.systemic != nil && i == 0 {
				// A collaborator that is down at the start of the stage is a
				// systemic condition, not a bad item.
				return fmt.Errorf("identify: %w", res.systemic)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		run.record(res.email.ID, StageIdentify, res.outcome, res.detail)
		for _, order := range res.orders {
			if err := o.orders.Save(ctx, order, posting.Key(order)); err != nil {
				o.logger.Warn("order audit persist failed", "order_id", order.ID, "error", err)
			}
		}
	}

	o.logger.Info("identify complete", "run_id", run.ID, "emails", len(emails))
	return results, nil
}

func (o *Orchestrator) identifyEmail(
	ctx context.Context,
	email mail.EmailRecord,
	catalog extraction.Catalog,
	snapshot *masterdata.Snapshot,
) identifyResult {
	res := identifyResult{email: email}

	var extracted *extraction.Result
	err := Exchange(ctx, o.cfg.MaxHandoffExchanges, func(ctx context.Context) (string, error) {
		r, err := o.adapter.Extract(ctx, email, catalog)
		if err != nil {
			return "", err
		}
		extracted = r
		return r.Summary, nil
	})

	switch {
	case errors.Is(err, extraction.ErrUnavailable):
		res.systemic = err
		res.outcome = OutcomeSkipped
		res.detail = err.Error()
		return res
	case errors.Is(err, ErrIncompleteHandoff):
		res.outcome = OutcomeSkipped
		res.detail = "handoff_incomplete"
		return res
	case err != nil:
		res.outcome = OutcomeSkipped
		res.detail = err.Error()
		return res
	}

	candidates := extracted.Candidates
	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Confidence >= o.cfg.MinConfidence {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		res.outcome = OutcomeSkipped
		if len(candidates) > 0 {
			res.detail = "low_confidence"
		} else {
			res.detail = "no_order_identified"
		}
		return res
	}

	rejectedReasons := []string{}
	for _, c := range kept {
		order := o.engine.Validate(c, snapshot, email.ReceivedAt)
		res.orders = append(res.orders, &order)
		if order.Status == validation.StatusRejected {
			rejectedReasons = append(rejectedReasons, strings.Join(order.Notes, ";"))
		}
	}

	if len(rejectedReasons) == len(res.orders) {
		res.outcome = OutcomeRejected
		res.detail = strings.Join(rejectedReasons, "|")
		return res
	}

	res.outcome = OutcomeIdentified
	return res
}

// post submits postable orders sequentially in ingest order. Sequential
// execution is deliberate: it upholds per-customer ERP sequencing and keeps
// the audit trail totally ordered.
func (o *Orchestrator) post(ctx context.Context, run *Run, results []identifyResult) {
	for _, res := range results {
		if res.outcome != OutcomeIdentified {
			continue
		}

		for _, order := range res.orders {
			if !order.Postable() {
				continue
			}
			if err := ctx.Err(); err != nil {
				// Cancelled mid-stage: schedule nothing further. In-flight
				// submissions have already returned by this point.
				run.record(res.email.ID, StagePost, OutcomeSkipped, "cancelled")
				continue
			}

			record, err := o.gateway.Post(ctx, order)
			if err != nil {
				run.record(res.email.ID, StagePost, OutcomeFailed, err.Error())
				continue
			}

			switch record.Status {
			case posting.StatusPosted:
				run.record(res.email.ID, StagePost, OutcomePosted, record.ERPOrderNumber)
			case posting.StatusSkippedDuplicate:
				run.record(res.email.ID, StagePost, OutcomeSkippedDuplicate, record.ERPOrderNumber)
			default:
				run.record(res.email.ID, StagePost, OutcomeFailed, record.LastError)
			}
		}
	}
}

func (o *Orchestrator) complete(ctx context.Context, run *Run) error {
	run.State = StateCompleted
	run.Status = StatusSuccess
	for _, out := range run.Outcomes {
		if out.Outcome == OutcomeFailed {
			run.Status = StatusPartialFailure
			break
		}
	}

	o.finalize(ctx, run)
	o.notify(ctx, run)

	o.logger.Info(
		"run completed",
		"run_id", run.ID,
		"status", run.Status,
		"outcomes", len(run.Outcomes),
	)
	return nil
}

// fail moves the run to the absorbing FAILED state. Only systemic errors
// arrive here; per-item failures are absorbed as stage outcomes.
func (o *Orchestrator) fail(ctx context.Context, run *Run, err error) error {
	run.State = StateFailed
	run.Status = StatusFailed

	o.finalize(ctx, run)

	o.logger.Error("run failed", "run_id", run.ID, "error", err)
	return err
}

func (o *Orchestrator) finalize(ctx context.Context, run *Run) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Report = BuildReport(run)

	// Finalization must survive a cancelled run context.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.runs.Finalize(finCtx, run); err != nil {
		o.logger.Warn("run finalize persist failed", "run_id", run.ID, "error", err)
	}
}

// notify emails the run summary when a notification address is configured.
// Delivery failure is logged, never fatal.
func (o *Orchestrator) notify(ctx context.Context, run *Run) {
	if o.cfg.NotifyAddress == "" {
		return
	}

	subject := fmt.Sprintf("Order run %s: %s", run.ID, run.Status)
	if _, err := o.mail.Send(ctx, o.cfg.NotifyAddress, subject, run.Report.Summary()); err != nil {
		o.logger.Warn("run notification failed", "run_id", run.ID, "error", err)
	}
}

func buildCatalog(snapshot *masterdata.Snapshot) extraction.Catalog {
	var catalog extraction.Catalog
	for _, c := range snapshot.Customers() {
		catalog.Customers = append(catalog.Customers, extraction.CatalogCustomer{No: c.No, Name: c.Name})
	}
	for _, i := range snapshot.Items() {
		catalog.Items = append(catalog.Items, extraction.CatalogItem{No: i.No, Description: i.Description})
	}
	return catalog
}

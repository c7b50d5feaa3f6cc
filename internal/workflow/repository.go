package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyorworks/conveyor/internal/validation"
)

type runRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRunRepository creates a PostgreSQL-backed run store.
func NewRunRepository(pool *pgxpool.Pool, logger *slog.Logger) RunStore {
	return &runRepo{
		pool:   pool,
		logger: logger.With("system", "workflow-runs"),
	}
}

func (r *runRepo) Create(ctx context.Context, run *Run) error {
	q := `
		INSERT INTO workflow_runs (id, state, status, outcomes, started_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, q,
		run.ID,
		string(run.State),
		string(run.Status),
		[]byte("[]"),
		run.StartedAt,
	); err != nil {
		return fmt.Errorf("create workflow run: %w", err)
	}

	return nil
}

func (r *runRepo) Finalize(ctx context.Context, run *Run) error {
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("encode run outcomes: %w", err)
	}

	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	q := `
		UPDATE workflow_runs SET
			state = $2,
			status = $3,
			outcomes = $4,
			report = $5,
			completed_at = $6
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, q,
		run.ID,
		string(run.State),
		string(run.Status),
		outcomes,
		report,
		run.CompletedAt,
	); err != nil {
		return fmt.Errorf("finalize workflow run: %w", err)
	}

	return nil
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewOrderRepository creates a PostgreSQL-backed validated-order store. The
// store is an audit trail: rows are keyed by the order's deterministic
// identity, so re-validating the same candidate overwrites in place instead
// of accumulating duplicates.
func NewOrderRepository(pool *pgxpool.Pool, logger *slog.Logger) OrderStore {
	return &orderRepo{
		pool:   pool,
		logger: logger.With("system", "validated-orders"),
	}
}

func (r *orderRepo) Save(ctx context.Context, order *validation.Order, idempotencyKey string) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return fmt.Errorf("encode order notes: %w", err)
	}

	q := `
		INSERT INTO validated_orders (
			id, source_email_id, customer_no, customer_name, contact_person,
			lines, requested_delivery_date, status, notes, idempotency_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			customer_no = EXCLUDED.customer_no,
			customer_name = EXCLUDED.customer_name,
			contact_person = EXCLUDED.contact_person,
			lines = EXCLUDED.lines,
			requested_delivery_date = EXCLUDED.requested_delivery_date,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			idempotency_key = EXCLUDED.idempotency_key`

	if _, err := r.pool.Exec(ctx, q,
		order.ID,
		order.SourceEmailID,
		order.CustomerNo,
		order.CustomerName,
		order.ContactPerson,
		lines,
		order.RequestedDeliveryDate,
		string(order.Status),
		notes,
		idempotencyKey,
	); err != nil {
		return fmt.Errorf("save validated order: %w", err)
	}

	return nil
}

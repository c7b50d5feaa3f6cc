package posting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyorworks/conveyor/pkg/repository"
)

type repo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a PostgreSQL-backed posting record store.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) RecordStore {
	return &repo{
		pool:   pool,
		logger: logger.With("system", "posting-records"),
	}
}

func (r *repo) Find(ctx context.Context, key string) (*Record, error) {
	q := `
		SELECT idempotency_key, source_email_id, erp_order_number, attempts, last_error, status, created_at, updated_at
		FROM posting_records
		WHERE idempotency_key = $1`

	rec, err := repository.QueryOne(ctx, r.pool, q, []any{key}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &rec, nil
}

func (r *repo) Save(ctx context.Context, record *Record) error {
	q := `
		INSERT INTO posting_records (idempotency_key, source_email_id, erp_order_number, attempts, last_error, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			erp_order_number = EXCLUDED.erp_order_number,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, q,
		record.IdempotencyKey,
		record.SourceEmailID,
		record.ERPOrderNumber,
		record.Attempts,
		record.LastError,
		string(record.Status),
		record.CreatedAt,
		record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save posting record: %w", err)
	}

	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	if err := row.Scan(
		&rec.IdempotencyKey,
		&rec.SourceEmailID,
		&rec.ERPOrderNumber,
		&rec.Attempts,
		&rec.LastError,
		&status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

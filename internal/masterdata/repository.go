package masterdata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyorworks/conveyor/pkg/repository"
)

// Loader produces the master data snapshot for a run.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

type repo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a PostgreSQL-backed master data loader.
func New(pool *pgxpool.Pool, logger *slog.Logger) Loader {
	return &repo{
		pool:   pool,
		logger: logger.With("system", "masterdata"),
	}
}

func (r *repo) Load(ctx context.Context) (*Snapshot, error) {
	customers, err := repository.QueryMany(
		ctx, r.pool,
		"SELECT customer_no, name, aliases FROM master_customers ORDER BY customer_no",
		nil, scanCustomer,
	)
	if err != nil {
		return nil, fmt.Errorf("load master customers: %w", err)
	}

	items, err := repository.QueryMany(
		ctx, r.pool,
		"SELECT item_no, description, aliases FROM master_items ORDER BY item_no",
		nil, scanItem,
	)
	if err != nil {
		return nil, fmt.Errorf("load master items: %w", err)
	}

	r.logger.Info("master data loaded", "customers", len(customers), "items", len(items))
	return NewSnapshot(customers, items), nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.No, &c.Name, &c.Aliases); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	if err := row.Scan(&i.No, &i.Description, &i.Aliases); err != nil {
		return Item{}, err
	}
	return i, nil
}

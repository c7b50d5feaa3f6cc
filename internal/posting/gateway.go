package posting

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/conveyorworks/conveyor/internal/erp"
	"github.com/conveyorworks/conveyor/internal/validation"
)

// Locker provides mutual exclusion per idempotency key, including across
// overlapping runs in separate processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Config holds posting gateway parameters.
type Config struct {
	// MaxAttempts bounds ERP submissions per Post call, including the first.
	MaxAttempts int
	// BackoffInitial is the sleep before the first retry; doubled per
	// attempt up to BackoffMax, with +/- JitterFrac applied.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	JitterFrac     float64
	// ExternalDocumentNo is stamped on every submitted header so the ERP
	// can reject duplicates for the same source reference.
	ExternalDocumentNo string
}

// Gateway posts validated orders with at-most-once semantics per order
// identity.
type Gateway struct {
	erp    erp.Client
	store  RecordStore
	locks  Locker
	cfg    Config
	logger *slog.Logger
}

// NewGateway creates a posting gateway.
func NewGateway(client erp.Client, store RecordStore, locks Locker, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}

	return &Gateway{
		erp:    client,
		store:  store,
		locks:  locks,
		cfg:    cfg,
		logger: logger.With("system", "posting"),
	}
}

// Post submits one order. If a record for the order's idempotency key is
// already posted, it returns that record with status skipped-duplicate and
// performs no ERP call. Transient ERP failures retry with bounded backoff;
// permanent failures record failed immediately. An order-level failure is
// reported through the record, not the error; the error return is reserved
// for infrastructure problems (lock, store, cancellation).
func (g *Gateway) Post(ctx context.Context, order *validation.Order) (*Record, error) {
	if !order.Postable() {
		return nil, ErrNotPostable
	}

	key := Key(order)

	release, err := g.locks.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire posting lock: %w", err)
	}
	defer release()

	record, err := g.store.Find(ctx, key)
	switch {
	case err == nil:
		if record.Status == StatusPosted {
			g.logger.Info("duplicate posting skipped", "key", key, "order_number", record.ERPOrderNumber)
			dup := *record
			dup.Status = StatusSkippedDuplicate
			return &dup, nil
		}
	case err == ErrNotFound:
		now := time.Now().UTC()
		record = &Record{
			IdempotencyKey: key,
			SourceEmailID:  order.SourceEmailID,
			CreatedAt:      now,
		}
	default:
		return nil, fmt.Errorf("lookup posting record: %w", err)
	}

	header, lines := g.buildSubmission(order)

	for {
		record.Attempts++

		created, postErr := g.erp.CreateSalesOrder(ctx, header, lines)
		if postErr == nil {
			record.Status = StatusPosted
			record.ERPOrderNumber = created.Number
			record.LastError = ""
			break
		}

		record.LastError = postErr.Error()

		if !erp.IsTransient(postErr) || record.Attempts >= g.cfg.MaxAttempts {
			record.Status = StatusFailed
			g.logger.Warn(
				"posting failed",
				"key", key,
				"source_email_id", order.SourceEmailID,
				"attempts", record.Attempts,
				"error", postErr,
			)
			break
		}

		g.logger.Info("transient posting failure, retrying", "key", key, "attempt", record.Attempts)
		if err := g.sleep(ctx, record.Attempts-1); err != nil {
			record.Status = StatusFailed
			break
		}
	}

	record.UpdatedAt = time.Now().UTC()
	if err := g.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist posting record: %w", err)
	}

	if record.Status == StatusPosted {
		g.logger.Info(
			"order posted",
			"key", key,
			"order_number", record.ERPOrderNumber,
			"attempts", record.Attempts,
		)
	}

	return record, nil
}

func (g *Gateway) buildSubmission(order *validation.Order) (erp.Header, []erp.LineItem) {
	date := order.RequestedDeliveryDate
	if date == validation.DateUnspecified {
		date = ""
	}

	header := erp.Header{
		CustomerNo:            order.CustomerNo,
		CustomerName:          order.CustomerName,
		ContactPerson:         order.ContactPerson,
		RequestedDeliveryDate: date,
		ExternalDocumentNo:    g.cfg.ExternalDocumentNo,
	}

	lines := make([]erp.LineItem, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, erp.LineItem{ItemNo: l.ItemNo, Quantity: l.Quantity})
	}

	return header, lines
}

func (g *Gateway) sleep(ctx context.Context, attempt int) error {
	sleep := g.cfg.BackoffInitial
	for i := 0; i < attempt && sleep < g.cfg.BackoffMax; i++ {
		sleep *= 2
	}
	if sleep > g.cfg.BackoffMax {
		sleep = g.cfg.BackoffMax
	}
	if g.cfg.JitterFrac > 0 {
		sleep = time.Duration(float64(sleep) * (1 + (rand.Float64()*2-1)*g.cfg.JitterFrac))
	}

	t := time.NewTimer(sleep)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

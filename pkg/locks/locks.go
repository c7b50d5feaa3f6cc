// Package locks provides a Redis-backed keyed mutex. It guards posting
// idempotency keys so that writes for the same key are mutually exclusive
// even across overlapping workflow runs in separate processes.
package locks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/conveyorworks/conveyor/pkg/lifecycle"
)

const keyPrefix = "conveyor:lock:"

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock reacquired by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// System acquires and releases named locks.
type System interface {
	// Acquire blocks until the key lock is held or ctx is done. The returned
	// function releases the lock.
	Acquire(ctx context.Context, key string) (func(), error)
	// Start registers lifecycle hooks for the underlying client.
	Start(lc *lifecycle.Coordinator) error
}

type system struct {
	rdb       *redis.Client
	logger    *slog.Logger
	ttl       time.Duration
	retryWait time.Duration
}

// New creates a lock system backed by Redis.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &system{
		rdb:       redis.NewClient(opts),
		logger:    logger.With("system", "locks"),
		ttl:       cfg.TTLDuration(),
		retryWait: cfg.RetryWaitDuration(),
	}, nil
}

func (s *system) Acquire(ctx context.Context, key string) (func(), error) {
	name := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := s.rdb.SetNX(ctx, name, token, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(s.retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	release := func() {
		// Release uses a background context so shutdown cancellation does
		// not strand the lock until TTL expiry.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(relCtx, s.rdb, []string{name}, token).Err(); err != nil {
			s.logger.Warn("lock release failed", "key", key, "error", err)
		}
	}

	return release, nil
}

func (s *system) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting lock client")

	lc.OnStartup(func() {
		if err := s.rdb.Ping(lc.Context()).Err(); err != nil {
			s.logger.Error("redis ping failed", "error", err)
			return
		}
		s.logger.Info("redis connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("redis close failed", "error", err)
		}
	})

	return nil
}

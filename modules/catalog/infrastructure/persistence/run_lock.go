package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
)

// SeedLockKey is the advisory lock key held for the duration of a seed run.
const SeedLockKey int64 = 0x62676361746c67

// AdvisoryLocker serialises seed runs across processes with a session-level
// advisory lock held on a dedicated connection.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
	key  int64
}

func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, key: SeedLockKey}
}

func (l *AdvisoryLocker) Lock(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire connection for run lock")
	}
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return nil, errors.Wrap(err, "failed to take run lock")
	}
	if !locked {
		conn.Release()
		return nil, ingest.ErrRunInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
			// a session lock dies with its connection
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

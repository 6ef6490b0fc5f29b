package postgres

import (
	"context"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

const unlockTimeout = 5 * time.Second

// AdvisoryLocker serializes work on one order across reconciler processes with
// session-level advisory locks. Each held lock pins a pooled connection.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

var _ ports.OrderLocker = (*AdvisoryLocker)(nil)

// NewAdvisoryLocker creates a locker on the pool
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// TryLock takes the lock for orderID without waiting
func (l *AdvisoryLocker) TryLock(ctx context.Context, orderID int64) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, dbError(err, "acquire lock connection", nil)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", orderID).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, dbError(err, "try advisory lock", nil)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", orderID); err != nil {
			// a connection that cannot unlock must not go back to the pool holding the lock
			_ = conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}
	return release, true, nil
}

package recovery

import (
	"context"
	"time"

	"coinmachine/internal/transaction"
)

type TransactionServiceContract interface {
	ListStale(ctx context.Context, idleFor time.Duration, limit int) ([]*transaction.Transaction, error)
	Reclaim(ctx context.Context, stale *transaction.Transaction, reason string) (transaction.Transition, error)
}

package recovery

import (
	"context"
	"time"

	"coinmachine/internal/transaction"

	"github.com/stretchr/testify/mock"
)

type TransactionServiceMock struct {
	TransactionServiceContract
	mock.Mock
}

func (m *TransactionServiceMock) ListStale(ctx context.Context, idleFor time.Duration, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, idleFor, limit)
	ts, _ := args.Get(0).([]*transaction.Transaction)
	return ts, args.Error(1)
}

func (m *TransactionServiceMock) Reclaim(ctx context.Context, stale *transaction.Transaction, reason string) (transaction.Transition, error) {
	args := m.Called(ctx, stale, reason)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

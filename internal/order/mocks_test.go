package order

import (
	"context"

	"coinmachine/internal/transaction"
	"coinmachine/kit/external_payment_gateway"

	"github.com/stretchr/testify/mock"
)

type TransactionServiceMock struct {
	mock.Mock
	TransactionServiceContract
}

func (m *TransactionServiceMock) Initialize(ctx context.Context, req transaction.InitRequest) (*transaction.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *TransactionServiceMock) Policy() transaction.AmountPolicy {
	return transaction.DefaultAmountPolicy()
}

type GatewayMock struct {
	mock.Mock
	GatewayContract
}

func (m *GatewayMock) CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (external_payment_gateway.Checkout, error) {
	args := m.Called(ctx, orderID, amount)
	return args.Get(0).(external_payment_gateway.Checkout), args.Error(1)
}

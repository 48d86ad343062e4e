package order

import (
	"context"

	"coinmachine/internal/transaction"
	"coinmachine/kit/external_payment_gateway"
)

// TransactionServiceContract define the transaction operations order
// creation depends on.
type TransactionServiceContract interface {
	Initialize(ctx context.Context, req transaction.InitRequest) (*transaction.Transaction, error)
	Policy() transaction.AmountPolicy
}

type GatewayContract interface {
	CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (external_payment_gateway.Checkout, error)
}

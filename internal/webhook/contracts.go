package webhook

import (
	"context"

	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
)

type TransactionServiceContract interface {
	ApplyProviderEvent(ctx context.Context, u transaction.ProviderUpdate) (transaction.Transition, error)
	Policy() transaction.AmountPolicy
}

type PublisherContract interface {
	Publish(ctx context.Context, evt broker.Event) []error
}

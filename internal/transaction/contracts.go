package transaction

import (
	"context"
	"time"

	"coinmachine/kit/broker"
)

// RepositoryContract define transaction store responsibility. Every mutation
// is conditional: CompareAndSwap only writes when the stored row still has
// prev's status and version, and reports db.ErrConflict otherwise.
type RepositoryContract interface {
	Create(ctx context.Context, t *Transaction) (bool, error)
	Get(ctx context.Context, id string) (*Transaction, error)
	CompareAndSwap(ctx context.Context, prev, next *Transaction) error
	NextActionable(ctx context.Context) (*Transaction, error)
	ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Transaction, error)
	Ping(ctx context.Context) error
}

// ServiceContract define transaction service responsibility.
type ServiceContract interface {
	Initialize(ctx context.Context, req InitRequest) (*Transaction, error)
	ApplyProviderEvent(ctx context.Context, u ProviderUpdate) (Transition, error)
	Next(ctx context.Context) (*Transaction, error)
	Lock(ctx context.Context, id, device string) (Transition, error)
	Progress(ctx context.Context, id, device string, count int64) (Transition, error)
	Complete(ctx context.Context, id, device string, count int64) (Transition, error)
	Fail(ctx context.Context, id, device, reason string) (Transition, error)
	Reclaim(ctx context.Context, stale *Transaction, reason string) (Transition, error)
	ListStale(ctx context.Context, idleFor time.Duration, limit int) ([]*Transaction, error)
	Get(ctx context.Context, id string) (*Transaction, error)
}

// PublisherContract define publish responsibility (broker).
type PublisherContract interface {
	Publish(ctx context.Context, evt broker.Event) []error
}

// StoreContract define append responsibility (event store).
type StoreContract interface {
	Append(ctx context.Context, aggregateID string, evt broker.Event) error
}

package webhook

import (
	"context"
	"errors"
	"sync"
	"time"

	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
	"coinmachine/kit/cache"

	"github.com/stretchr/testify/mock"
)

type TransactionServiceMock struct {
	TransactionServiceContract
	mock.Mock
}

func (m *TransactionServiceMock) ApplyProviderEvent(ctx context.Context, u transaction.ProviderUpdate) (transaction.Transition, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

func (m *TransactionServiceMock) Policy() transaction.AmountPolicy {
	return transaction.DefaultAmountPolicy()
}

type publishedEvents struct {
	mu     sync.Mutex
	events []broker.Event
}

func (p *publishedEvents) Publish(ctx context.Context, evt broker.Event) []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *publishedEvents) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(ctx context.Context, key string) (string, error) { return "", errCacheDown }
func (brokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errCacheDown
}
func (brokenCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errCacheDown
}
func (brokenCache) Del(ctx context.Context, key string) error { return errCacheDown }

var _ cache.Cache = brokenCache{}

package external_payment_gateway

import (
	"context"
	"log"
	"time"
)

type RetryConfig struct {
	Attempts    int
	CallTimeout time.Duration
	Backoff     time.Duration
}

// RetryGateway retries transient failures with linear backoff. Client errors
// and an open circuit are returned at once.
type RetryGateway struct {
	next  Gateway
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryGateway(next Gateway, cfg RetryConfig) *RetryGateway {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &RetryGateway{next: next, cfg: cfg, sleep: sleepCtx}
}

func (g *RetryGateway) CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (Checkout, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		c, err := g.next.CreatePaymentRequest(callCtx, orderID, amount)
		cancel()
		if err == nil {
			return c, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			return Checkout{}, err
		}
		if attempt == g.cfg.Attempts {
			break
		}
		backoff := time.Duration(attempt) * g.cfg.Backoff
		log.Printf("layer=gateway component=retry method=CreatePaymentRequest order_id=%s attempt=%d backoff=%s error_code=%s", orderID, attempt, backoff, ErrorCode(err))
		if err := g.sleep(ctx, backoff); err != nil {
			return Checkout{}, err
		}
	}
	return Checkout{}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

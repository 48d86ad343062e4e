package external_payment_gateway

import (
	"context"
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	// IsFailure decides which errors count towards tripping. Defaults to
	// Retryable, so a provider rejecting a bad order never opens the circuit.
	IsFailure func(error) bool
	// OnStateChange is called with the lock held; it must not call back into
	// the breaker.
	OnStateChange func(from, to BreakerState)
}

// CircuitBreakerGateway stops calling the provider after FailureThreshold
// consecutive transient failures. After OpenTimeout a single probe call is let
// through; SuccessThreshold successful probes close the circuit again.
type CircuitBreakerGateway struct {
	next Gateway
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreakerGateway(next Gateway, cfg CircuitBreakerConfig) *CircuitBreakerGateway {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = Retryable
	}
	return &CircuitBreakerGateway{next: next, cfg: cfg, now: time.Now, state: BreakerClosed}
}

func (g *CircuitBreakerGateway) CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (Checkout, error) {
	if !g.admit() {
		return Checkout{}, ErrCircuitOpen
	}
	c, err := g.next.CreatePaymentRequest(ctx, orderID, amount)
	g.record(err)
	return c, err
}

// State reports an expired open circuit as half open, since the next call
// would be admitted as a probe.
func (g *CircuitBreakerGateway) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == BreakerOpen && g.cooledDown() {
		return BreakerHalfOpen
	}
	return g.state
}

// Healthy fails only while the breaker is open and rejecting calls.
func (g *CircuitBreakerGateway) Healthy(ctx context.Context) error {
	if g.State() == BreakerOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (g *CircuitBreakerGateway) admit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == BreakerOpen {
		if !g.cooledDown() {
			return false
		}
		g.moveTo(BreakerHalfOpen)
	}
	if g.state == BreakerHalfOpen {
		if g.probing {
			return false
		}
		g.probing = true
	}
	return true
}

func (g *CircuitBreakerGateway) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probing = false

	failed := err != nil && g.cfg.IsFailure(err)
	switch g.state {
	case BreakerClosed:
		if !failed {
			if err == nil {
				g.failures = 0
			}
			return
		}
		g.failures++
		if g.failures >= g.cfg.FailureThreshold {
			g.moveTo(BreakerOpen)
		}
	case BreakerHalfOpen:
		switch {
		case failed:
			g.moveTo(BreakerOpen)
		case err == nil:
			g.successes++
			if g.successes >= g.cfg.SuccessThreshold {
				g.moveTo(BreakerClosed)
			}
		}
	}
}

func (g *CircuitBreakerGateway) cooledDown() bool {
	return g.now().Sub(g.openedAt) >= g.cfg.OpenTimeout
}

func (g *CircuitBreakerGateway) moveTo(to BreakerState) {
	from := g.state
	g.state = to
	g.failures = 0
	g.successes = 0
	if to == BreakerOpen {
		g.openedAt = g.now()
	}
	if from != to && g.cfg.OnStateChange != nil {
		g.cfg.OnStateChange(from, to)
	}
}

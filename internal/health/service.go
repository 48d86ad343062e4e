package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

type CheckFunc func(ctx context.Context) error

// DefaultCheckTimeout bounds a single dependency probe.
const DefaultCheckTimeout = 2 * time.Second

type Service struct {
	mu sync.Mutex

	checks  map[string]CheckFunc
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	nextCheckAt time.Time
	lastResult  Result
}

type Result struct {
	At     time.Time         `json:"at"`
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Failing lists the names of failed checks in order.
func (r Result) Failing() []string {
	var out []string
	for name, status := range r.Checks {
		if status != "ok" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func NewService(ttl time.Duration, checks map[string]CheckFunc) *Service {
	return &Service{
		ttl:        ttl,
		timeout:    DefaultCheckTimeout,
		checks:     checks,
		now:        time.Now,
		lastResult: Result{Checks: map[string]string{}},
	}
}

// WithTimeout overrides DefaultCheckTimeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Check runs every probe concurrently, or returns the previous result while
// it is younger than the TTL.
func (s *Service) Check(ctx context.Context) Result {
	s.mu.Lock()
	if s.now().Before(s.nextCheckAt) {
		res := s.lastResult
		s.mu.Unlock()
		return res
	}
	s.mu.Unlock()

	res := Result{At: s.now().UTC(), OK: true, Checks: make(map[string]string, len(s.checks))}
	var (
		wg  sync.WaitGroup
		rmu sync.Mutex
	)
	for name, fn := range s.checks {
		if fn == nil {
			rmu.Lock()
			res.OK = false
			res.Checks[name] = "invalid check"
			rmu.Unlock()
			continue
		}
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			status := s.probe(ctx, fn)
			rmu.Lock()
			defer rmu.Unlock()
			if status != "ok" {
				res.OK = false
			}
			res.Checks[name] = status
		}(name, fn)
	}
	wg.Wait()

	s.mu.Lock()
	s.lastResult = res
	s.nextCheckAt = s.now().Add(s.ttl)
	s.mu.Unlock()

	return res
}

func (s *Service) probe(ctx context.Context, fn CheckFunc) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

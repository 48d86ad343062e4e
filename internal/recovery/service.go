package recovery

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"coinmachine/internal/transaction"
	"coinmachine/kit/db"
	"coinmachine/kit/observability"
)

const (
	DefaultStaleAfter = 15 * time.Minute
	DefaultBatchSize  = 50
	TopicReclaimed    = "dispense.reclaimed"
)

type DeadLetter struct {
	Topic   string    `json:"topic"`
	Reason  string    `json:"reason"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Service fails dispense sessions abandoned by their device and keeps a
// dead-letter list of everything an operator has to settle by hand.
type Service struct {
	transactions TransactionServiceContract
	logger       *observability.Logger
	staleAfter   time.Duration
	batch        int
	now          func() time.Time

	mu  sync.Mutex
	dlq []DeadLetter
}

func NewService(transactions TransactionServiceContract, logger *observability.Logger, staleAfter time.Duration) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{
		transactions: transactions,
		logger:       logger,
		staleAfter:   staleAfter,
		batch:        DefaultBatchSize,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SendToDLQ(ctx context.Context, topic string, reason string, payload any) {
	s.mu.Lock()
	s.dlq = append(s.dlq, DeadLetter{Topic: topic, Reason: reason, Payload: payload, At: s.now()})
	s.mu.Unlock()
	if s.logger == nil {
		return
	}
	s.logger.Error("dlq", "topic", topic, "reason", reason, "payload", payload)
}

func (s *Service) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeadLetter(nil), s.dlq...)
}

// Sweep reclaims every dispensing transaction idle for longer than the
// configured window. A transaction that moved since it was listed is left
// alone. It returns how many were reclaimed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	stale, err := s.transactions.ListStale(ctx, s.staleAfter, s.batch)
	if err != nil {
		log.Printf("layer=service component=recovery method=Sweep err=%v", err)
		return 0, err
	}

	var (
		reclaimed int
		errs      []error
	)
	for _, t := range stale {
		_, err := s.transactions.Reclaim(ctx, t, transaction.ReasonDispenseTimeout)
		switch {
		case err == nil:
			reclaimed++
			s.SendToDLQ(ctx, TopicReclaimed, transaction.ReasonDispenseTimeout, map[string]any{
				"txnid":           t.ID,
				"device":          t.LockedBy,
				"amount":          t.Amount,
				"dispensed_count": t.DispensedCount,
				"undispensed":     t.Amount - t.DispensedCount,
			})
		case db.IsConflict(err), errors.Is(err, transaction.ErrInvalidTransition):
			if s.logger != nil {
				s.logger.Info("reclaim skipped", "txnid", t.ID, "reason", err.Error())
			}
		default:
			log.Printf("layer=service component=recovery method=Sweep txnid=%s err=%v", t.ID, err)
			errs = append(errs, err)
		}
	}
	return reclaimed, errors.Join(errs...)
}

// Run sweeps every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); n > 0 && s.logger != nil {
				s.logger.Info("reclaim sweep", "reclaimed", n, "errors", err != nil)
			}
		}
	}
}

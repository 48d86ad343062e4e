package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coinmachine/kit/broker"
	"coinmachine/kit/db"
	"coinmachine/kit/observability"
)

// maxCASAttempts bounds how often a mutation is re-evaluated after losing a
// compare-and-swap race.
const maxCASAttempts = 5

const ReasonDispenseTimeout = "dispense_timeout"

type Service struct {
	bus        PublisherContract
	store      StoreContract
	repository RepositoryContract
	logger     *observability.Logger
	policy     AmountPolicy
	now        func() time.Time
}

func NewService(bus PublisherContract, store StoreContract, repo RepositoryContract, logger *observability.Logger, policy AmountPolicy) *Service {
	return &Service{
		bus:        bus,
		store:      store,
		repository: repo,
		logger:     logger.With("component", "transaction"),
		policy:     policy,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Policy() AmountPolicy { return s.policy }

// Initialize persists a created transaction. Repeating the call with an id
// that already exists returns the stored row unchanged.
func (s *Service) Initialize(ctx context.Context, req InitRequest) (*Transaction, error) {
	if err := ValidateInitRequest(req, s.policy); err != nil {
		log.Printf("layer=service component=transaction method=Initialize txnid=%s amount=%d err=%v", req.ID, req.Amount, err)
		return nil, errors.Join(db.ErrInvalid, err)
	}

	now := s.now()
	t := &Transaction{
		ID:                req.ID,
		Amount:            req.Amount,
		Status:            StatusCreated,
		Provider:          req.Provider,
		ProviderReference: req.ProviderReference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	created, err := s.repository.Create(ctx, t)
	if err != nil {
		log.Printf("layer=service component=transaction method=Initialize txnid=%s err=%v", req.ID, err)
		return nil, err
	}
	if !created {
		existing, err := s.repository.Get(ctx, req.ID)
		if err != nil {
			log.Printf("layer=service component=transaction method=Initialize txnid=%s err=%v", req.ID, err)
			return nil, err
		}
		return existing, nil
	}

	s.emit(ctx, t.ID, ToTransactionCreatedEvent(t))
	s.logger.Info("transaction created", "txnid", t.ID, "amount", t.Amount, "provider", t.Provider)
	return t, nil
}

// ApplyProviderEvent applies a normalized provider callback. A capture for an
// unknown id originates the transaction directly in captured.
func (s *Service) ApplyProviderEvent(ctx context.Context, u ProviderUpdate) (Transition, error) {
	if err := ValidateProviderUpdate(u); err != nil {
		log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s event=%s err=%v", u.ID, u.Event, err)
		return Transition{}, errors.Join(db.ErrInvalid, err)
	}
	if u.Event == EventPaymentCaptured && u.Amount != 0 && !s.policy.ValidateInt(u.Amount) {
		err := fmt.Errorf("%w: provider amount %d outside %s", ErrPolicyViolation, u.Amount, s.policy)
		log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s event=%s err=%v", u.ID, u.Event, err)
		return Transition{}, err
	}

	in := Input{
		Event:             u.Event,
		Amount:            u.Amount,
		Provider:          u.Provider,
		ProviderReference: u.ProviderReference,
		ProviderEventType: u.ProviderEventType,
		Reason:            u.Reason,
	}

	for attempt := 1; ; attempt++ {
		cur, err := s.repository.Get(ctx, u.ID)
		if db.IsNotFound(err) && u.Event == EventPaymentCaptured {
			tr, created, err := s.originate(ctx, u, in)
			if err != nil || created {
				return tr, err
			}
			if attempt >= maxCASAttempts {
				return Transition{}, db.ErrConflict
			}
			continue
		}
		if err != nil {
			if !db.IsNotFound(err) {
				log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s event=%s err=%v", u.ID, u.Event, err)
			}
			return Transition{}, err
		}

		tr, err := s.step(ctx, cur, in)
		if db.IsConflict(err) && attempt < maxCASAttempts {
			continue
		}
		if errors.Is(err, ErrInvalidTransition) && u.Event == EventPaymentCaptured && !cur.Dispensed {
			s.emit(ctx, cur.ID, ToAttentionRequiredEvent(cur, "payment_after_terminal",
				fmt.Sprintf("provider reported %s for a %s transaction", u.ProviderEventType, cur.Status), s.now()))
		}
		if err != nil {
			log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s event=%s status=%s err=%v", u.ID, u.Event, cur.Status, err)
		}
		return tr, err
	}
}

// originate creates a captured row for a capture whose id was never
// initialized here. created is false when another writer created it first.
func (s *Service) originate(ctx context.Context, u ProviderUpdate, in Input) (Transition, bool, error) {
	if !s.policy.ValidateInt(u.Amount) {
		err := fmt.Errorf("%w: capture for unknown %s carries amount %d", ErrPolicyViolation, u.ID, u.Amount)
		log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s err=%v", u.ID, err)
		return Transition{}, false, err
	}
	now := s.now()
	t := &Transaction{
		ID:                u.ID,
		Amount:            u.Amount,
		Status:            StatusCaptured,
		Provider:          u.Provider,
		ProviderReference: u.ProviderReference,
		ProviderEventType: u.ProviderEventType,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	created, err := s.repository.Create(ctx, t)
	if err != nil {
		log.Printf("layer=service component=transaction method=ApplyProviderEvent txnid=%s err=%v", u.ID, err)
		return Transition{}, false, err
	}
	if !created {
		return Transition{}, false, nil
	}
	s.emit(ctx, t.ID, ToTransactionCreatedEvent(t))
	in.At = now
	s.record(ctx, "", t, in)
	return Transition{Transaction: t, To: StatusCaptured, Event: in.Event, Applied: true}, true, nil
}

// Next returns the oldest captured or dispensing transaction that has not
// been dispensed. It never writes.
func (s *Service) Next(ctx context.Context) (*Transaction, error) {
	t, err := s.repository.NextActionable(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNoneAvailable
		}
		log.Printf("layer=service component=transaction method=Next err=%v", err)
		return nil, err
	}
	return t, nil
}

// Lock moves a captured transaction to dispensing for device. Losing the
// race to another writer is reported as ErrLockHeld.
func (s *Service) Lock(ctx context.Context, id, device string) (Transition, error) {
	if err := validateDeviceCall(id, device); err != nil {
		return Transition{}, errors.Join(db.ErrInvalid, err)
	}
	return s.mutate(ctx, "Lock", id, Input{Event: EventDispenseLocked, Device: device}, false)
}

func (s *Service) Progress(ctx context.Context, id, device string, count int64) (Transition, error) {
	if err := validateDeviceCall(id, device); err != nil {
		return Transition{}, errors.Join(db.ErrInvalid, err)
	}
	if count < 0 {
		return Transition{}, errors.Join(db.ErrInvalid, fmt.Errorf("%w: negative dispensed count", ErrInvalidRequest))
	}
	return s.mutate(ctx, "Progress", id, Input{Event: EventDispenseProgress, Device: device, Count: count}, true)
}

// Complete marks the dispense finished. count, when above the stored value,
// is recorded as the final dispensed count.
func (s *Service) Complete(ctx context.Context, id, device string, count int64) (Transition, error) {
	if err := validateDeviceCall(id, device); err != nil {
		return Transition{}, errors.Join(db.ErrInvalid, err)
	}
	if count < 0 {
		return Transition{}, errors.Join(db.ErrInvalid, fmt.Errorf("%w: negative dispensed count", ErrInvalidRequest))
	}
	return s.mutate(ctx, "Complete", id, Input{Event: EventDispenseCompleted, Device: device, Count: count}, true)
}

func (s *Service) Fail(ctx context.Context, id, device, reason string) (Transition, error) {
	if err := validateDeviceCall(id, device); err != nil {
		return Transition{}, errors.Join(db.ErrInvalid, err)
	}
	if reason == "" {
		reason = "device_failure"
	}
	return s.mutate(ctx, "Fail", id, Input{Event: EventDispenseFailed, Device: device, Reason: reason}, true)
}

// Reclaim fails a dispensing transaction exactly as it was observed in stale.
// Any activity since then makes it return db.ErrConflict without writing.
func (s *Service) Reclaim(ctx context.Context, stale *Transaction, reason string) (Transition, error) {
	if reason == "" {
		reason = ReasonDispenseTimeout
	}
	tr, err := s.step(ctx, stale, Input{Event: EventDispenseReclaimed, Device: stale.LockedBy, Reason: reason})
	if err != nil {
		if !db.IsConflict(err) {
			log.Printf("layer=service component=transaction method=Reclaim txnid=%s err=%v", stale.ID, err)
		}
		return tr, err
	}
	now := s.now()
	s.emit(ctx, stale.ID, ToReclaimedEvent(stale, now.Sub(stale.UpdatedAt), now))
	return tr, nil
}

// ListStale returns dispensing transactions idle for at least idleFor.
func (s *Service) ListStale(ctx context.Context, idleFor time.Duration, limit int) ([]*Transaction, error) {
	ts, err := s.repository.ListStale(ctx, StatusDispensing, s.now().Add(-idleFor), limit)
	if err != nil {
		log.Printf("layer=service component=transaction method=ListStale err=%v", err)
		return nil, err
	}
	return ts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	t, err := s.repository.Get(ctx, id)
	if err != nil {
		log.Printf("layer=service component=transaction method=Get txnid=%s err=%v", id, err)
		return nil, err
	}
	return t, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

func (s *Service) mutate(ctx context.Context, method, id string, in Input, retryConflicts bool) (Transition, error) {
	for attempt := 1; ; attempt++ {
		cur, err := s.repository.Get(ctx, id)
		if err != nil {
			log.Printf("layer=service component=transaction method=%s txnid=%s err=%v", method, id, err)
			return Transition{}, err
		}
		tr, err := s.step(ctx, cur, in)
		if err == nil {
			return tr, nil
		}
		if db.IsConflict(err) {
			// Only the captured -> dispensing swap is the lock race; a lost
			// holder heartbeat is re-evaluated like any other write.
			if !retryConflicts && cur.Status == StatusCaptured {
				err = errors.Join(ErrLockHeld, err)
			} else if attempt < maxCASAttempts {
				continue
			}
		}
		log.Printf("layer=service component=transaction method=%s txnid=%s device=%s status=%s err=%v", method, id, in.Device, cur.Status, err)
		return tr, err
	}
}

// step evaluates in against cur and writes the result with a single
// compare-and-swap. Guard failures and no-ops never touch the repository.
func (s *Service) step(ctx context.Context, cur *Transaction, in Input) (Transition, error) {
	in.At = s.now()
	unchanged := Transition{Transaction: cur, From: cur.Status, To: cur.Status, Event: in.Event}

	next, changed, err := Apply(*cur, in)
	if err != nil {
		return unchanged, err
	}
	if !changed {
		beat, ok := Heartbeat(*cur, in)
		if !ok {
			return unchanged, nil
		}
		if err := s.repository.CompareAndSwap(ctx, cur, &beat); err != nil {
			return unchanged, err
		}
		return Transition{Transaction: &beat, From: cur.Status, To: cur.Status, Event: in.Event}, nil
	}
	if err := s.repository.CompareAndSwap(ctx, cur, &next); err != nil {
		return unchanged, err
	}
	s.record(ctx, cur.Status, &next, in)
	return Transition{Transaction: &next, From: cur.Status, To: next.Status, Event: in.Event, Applied: true}, nil
}

func (s *Service) record(ctx context.Context, from Status, next *Transaction, in Input) {
	s.emit(ctx, next.ID, ToTransitionedEvent(from, next, in))
	s.logger.Info("transaction transitioned",
		"txnid", next.ID,
		"from", from,
		"to", next.Status,
		"cause", in.Event,
		"dispensed_count", next.DispensedCount,
		"version", next.Version,
	)
}

func (s *Service) emit(ctx context.Context, aggregateID string, evt broker.Event) {
	if s.store != nil {
		if err := s.store.Append(ctx, aggregateID, evt); err != nil {
			log.Printf("layer=service component=transaction method=emit txnid=%s event=%s err=%v", aggregateID, evt.Name(), err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(ctx, evt)
	}
}

package transaction

import (
	"fmt"
	"time"
)

// Input carries one state machine event and its payload.
type Input struct {
	Event  Event
	Device string
	Count  int64
	// Amount, when positive, replaces the stored amount on capture.
	Amount            int64
	Provider          string
	ProviderReference string
	ProviderEventType string
	Reason            string
	At                time.Time
}

var providerTargets = map[Event]Status{
	EventPaymentCaptured:  StatusCaptured,
	EventPaymentFailed:    StatusFailed,
	EventPaymentExpired:   StatusExpired,
	EventPaymentCancelled: StatusCancelled,
	EventPaymentDropped:   StatusDropped,
}

// Apply evaluates in against cur. It returns the next record and whether it
// differs from cur; an error means the guard failed and cur stands. Apply
// never mutates cur.
func Apply(cur Transaction, in Input) (Transaction, bool, error) {
	next := cur
	switch in.Event {
	case EventPaymentCaptured, EventPaymentFailed, EventPaymentExpired, EventPaymentCancelled, EventPaymentDropped:
		return applyProvider(cur, next, in)
	case EventDispenseLocked:
		switch {
		case cur.Status == StatusCaptured:
			next.Status = StatusDispensing
			next.LockedBy = in.Device
		case cur.Status == StatusDispensing && cur.LockedBy == in.Device:
			return cur, false, nil
		case cur.Status == StatusDispensing:
			return cur, false, ErrLockHeld
		default:
			return cur, false, deviceRejection(cur, in)
		}
	case EventDispenseProgress:
		if err := requireHolder(cur, in); err != nil {
			return cur, false, err
		}
		switch {
		case in.Count < 0:
			return cur, false, fmt.Errorf("%w: negative dispensed count", ErrInvalidRequest)
		case in.Count < cur.DispensedCount:
			return cur, false, ErrStaleProgress
		case in.Count == cur.DispensedCount:
			return cur, false, nil
		}
		next.DispensedCount = in.Count
	case EventDispenseCompleted:
		if cur.Status == StatusDispensed {
			return cur, false, nil
		}
		if err := requireHolder(cur, in); err != nil {
			return cur, false, err
		}
		if in.Count < 0 {
			return cur, false, fmt.Errorf("%w: negative dispensed count", ErrInvalidRequest)
		}
		next.Status = StatusDispensed
		next.Dispensed = true
		if in.Count > cur.DispensedCount {
			next.DispensedCount = in.Count
		}
	case EventDispenseFailed:
		switch {
		case cur.Status == StatusCaptured:
		case cur.Status == StatusDispensing && cur.LockedBy != in.Device:
			return cur, false, ErrLockHeld
		case cur.Status == StatusDispensing:
		default:
			return cur, false, deviceRejection(cur, in)
		}
		next.Status = StatusFailed
		next.Reason = in.Reason
	case EventDispenseReclaimed:
		if cur.Status != StatusDispensing {
			return cur, false, fmt.Errorf("%w: reclaim from %s", ErrInvalidTransition, cur.Status)
		}
		next.Status = StatusFailed
		next.Reason = in.Reason
	default:
		return cur, false, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, in.Event)
	}
	return stamp(cur, next, in), true, nil
}

// Heartbeat returns the record to write when in is a no-op from the lock
// holder (re-lock or a repeated progress count). Only UpdatedAt and Version
// move, so a resumed session is not mistaken for an abandoned one.
func Heartbeat(cur Transaction, in Input) (Transaction, bool) {
	if cur.Status != StatusDispensing || cur.LockedBy != in.Device {
		return cur, false
	}
	if in.Event != EventDispenseLocked && in.Event != EventDispenseProgress {
		return cur, false
	}
	return stamp(cur, cur, in), true
}

func applyProvider(cur, next Transaction, in Input) (Transaction, bool, error) {
	target := providerTargets[in.Event]
	if cur.Status != StatusCreated {
		if in.Event == EventPaymentCaptured && (cur.Status == StatusCaptured || cur.Status == StatusDispensing || cur.Status == StatusDispensed) {
			return cur, false, nil
		}
		if cur.Status == target {
			return cur, false, nil
		}
		return cur, false, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, in.Event, cur.Status)
	}
	next.Status = target
	if in.Event == EventPaymentCaptured && in.Amount > 0 {
		next.Amount = in.Amount
	}
	if in.Provider != "" {
		next.Provider = in.Provider
	}
	if in.ProviderReference != "" {
		next.ProviderReference = in.ProviderReference
	}
	next.ProviderEventType = in.ProviderEventType
	if in.Reason != "" {
		next.Reason = in.Reason
	}
	return stamp(cur, next, in), true, nil
}

func requireHolder(cur Transaction, in Input) error {
	if cur.Status != StatusDispensing {
		return deviceRejection(cur, in)
	}
	if cur.LockedBy != in.Device {
		return ErrLockHeld
	}
	return nil
}

func deviceRejection(cur Transaction, in Input) error {
	if cur.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrNotActionable, cur.ID, cur.Status)
	}
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, in.Event, cur.Status)
}

func stamp(cur, next Transaction, in Input) Transaction {
	next.Version = cur.Version + 1
	if !in.At.IsZero() {
		next.UpdatedAt = in.At
	}
	return next
}

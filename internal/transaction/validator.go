package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyViolation   = errors.New("amount out of policy")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotActionable     = fmt.Errorf("%w: transaction not actionable", ErrInvalidTransition)
	ErrStaleProgress     = fmt.Errorf("%w: dispensed count lower than stored", ErrInvalidTransition)
	ErrLockHeld          = fmt.Errorf("%w: dispense lock held by another device", ErrInvalidTransition)
	ErrNoneAvailable     = errors.New("no actionable transaction")
	ErrInvalidRequest    = errors.New("invalid transaction request")
)

type InitRequest struct {
	ID                string
	Amount            int64
	Provider          string
	ProviderReference string
}

// ProviderUpdate is a normalized provider callback.
type ProviderUpdate struct {
	ID                string
	Event             Event
	Amount            int64
	Provider          string
	ProviderReference string
	ProviderEventType string
	Reason            string
}

func ValidateInitRequest(r InitRequest, policy AmountPolicy) error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}
	if !policy.ValidateInt(r.Amount) {
		return fmt.Errorf("%w: amount %d outside %s", ErrPolicyViolation, r.Amount, policy)
	}
	return nil
}

func ValidateProviderUpdate(u ProviderUpdate) error {
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}
	if !u.Event.ProviderEvent() {
		return fmt.Errorf("%w: %s is not a provider event", ErrInvalidRequest, u.Event)
	}
	return nil
}

func validateDeviceCall(id, device string) error {
	if id == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}
	if device == "" {
		return fmt.Errorf("%w: missing device id", ErrInvalidRequest)
	}
	return nil
}

package transaction

import "time"

type Status string

const (
	StatusCreated    Status = "created"
	StatusCaptured   Status = "captured"
	StatusDispensing Status = "dispensing"
	StatusDispensed  Status = "dispensed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
	StatusDropped    Status = "dropped"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusDispensed, StatusFailed, StatusExpired, StatusCancelled, StatusDropped:
		return true
	}
	return false
}

// Event names an edge of the state machine.
type Event string

const (
	EventOrderInitiated    Event = "order_initiated"
	EventPaymentCaptured   Event = "payment_captured"
	EventPaymentFailed     Event = "payment_failed"
	EventPaymentExpired    Event = "payment_expired"
	EventPaymentCancelled  Event = "payment_cancelled"
	EventPaymentDropped    Event = "payment_dropped"
	EventDispenseLocked    Event = "dispense_locked"
	EventDispenseProgress  Event = "dispense_progress"
	EventDispenseCompleted Event = "dispense_completed"
	EventDispenseFailed    Event = "dispense_failed"
	EventDispenseReclaimed Event = "dispense_reclaimed"
)

// ProviderEvent reports whether e originates at the payment provider.
func (e Event) ProviderEvent() bool {
	switch e {
	case EventPaymentCaptured, EventPaymentFailed, EventPaymentExpired, EventPaymentCancelled, EventPaymentDropped:
		return true
	}
	return false
}

type Transaction struct {
	ID                string
	Amount            int64
	Status            Status
	Dispensed         bool
	DispensedCount    int64
	LockedBy          string
	Provider          string
	ProviderReference string
	ProviderEventType string
	Reason            string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Actionable is the fetch-next predicate.
func (t *Transaction) Actionable() bool {
	return !t.Dispensed && (t.Status == StatusCaptured || t.Status == StatusDispensing)
}

// Transition is the outcome of a state machine call. Applied is false when the
// call was an idempotent no-op.
type Transition struct {
	Transaction *Transaction
	From        Status
	To          Status
	Event       Event
	Applied     bool
}

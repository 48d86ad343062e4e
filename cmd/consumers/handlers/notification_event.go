package handlers

import (
	"context"
	"fmt"

	"coinmachine/internal/events"
	"coinmachine/internal/notification"
	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
)

type NotificationEvent struct {
	n NotifierContract
}

func NewNotificationEvent(n NotifierContract) *NotificationEvent {
	return &NotificationEvent{n: n}
}

func (h *NotificationEvent) HandleTransitioned(ctx context.Context, evt broker.Event) error {
	if h.n == nil {
		return nil
	}
	e, ok := evt.(events.TransactionTransitioned)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}
	switch transaction.Event(e.Cause) {
	case transaction.EventDispenseFailed:
		h.n.Notify(ctx, e.TxnID, notification.SeverityAction, "dispense failed",
			fmt.Sprintf("device %s reported %q after %d of %d; refund %d", e.Device, e.Reason, e.DispensedCount, e.Amount, e.Amount-e.DispensedCount))
	case transaction.EventDispenseCompleted:
		h.n.Notify(ctx, e.TxnID, notification.SeverityInfo, "dispense completed",
			fmt.Sprintf("dispensed %d of %d", e.DispensedCount, e.Amount))
	}
	return nil
}

func (h *NotificationEvent) HandleReclaimed(ctx context.Context, evt broker.Event) error {
	if h.n == nil {
		return nil
	}
	e, ok := evt.(events.TransactionReclaimed)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}
	h.n.Notify(ctx, e.TxnID, notification.SeverityAction, "dispense abandoned",
		fmt.Sprintf("device %s idle for %s after %d of %d; refund %d", e.Device, e.IdleFor, e.DispensedCount, e.Amount, e.Amount-e.DispensedCount))
	return nil
}

func (h *NotificationEvent) HandleAttentionRequired(ctx context.Context, evt broker.Event) error {
	if h.n == nil {
		return nil
	}
	e, ok := evt.(events.AttentionRequired)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}
	h.n.Notify(ctx, e.TxnID, notification.SeverityAction, e.Kind, e.Detail)
	return nil
}

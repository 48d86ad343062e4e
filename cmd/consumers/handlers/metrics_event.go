package handlers

import (
	"context"

	"coinmachine/internal/events"
	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
)

type MetricsEvent struct {
	m MetricsContract
}

func NewMetricsEvent(m MetricsContract) *MetricsEvent {
	return &MetricsEvent{m: m}
}

func (h *MetricsEvent) HandleAny(ctx context.Context, evt broker.Event) error {
	if h.m == nil {
		return nil
	}

	switch e := evt.(type) {
	case events.TransactionCreated:
		if transaction.Status(e.Status) == transaction.StatusCreated {
			h.m.OrdersCreatedAdd(1)
		} else {
			h.m.PaymentsCapturedAdd(1)
		}
	case events.TransactionTransitioned:
		h.transitioned(e)
	case events.TransactionReclaimed:
		h.m.TransactionsReclaimedAdd(1)
	}
	return nil
}

func (h *MetricsEvent) transitioned(e events.TransactionTransitioned) {
	cause := transaction.Event(e.Cause)
	switch {
	case e.From == "":
		// originated captured; counted with TransactionCreated
	case cause == transaction.EventPaymentCaptured:
		h.m.PaymentsCapturedAdd(1)
	case cause.ProviderEvent():
		h.m.PaymentsClosedAdd(1)
	case cause == transaction.EventDispenseLocked:
		h.m.DispensesStartedAdd(1)
	case cause == transaction.EventDispenseCompleted:
		h.m.DispensesCompletedAdd(1)
	case cause == transaction.EventDispenseFailed:
		h.m.DispensesFailedAdd(1)
	}
}

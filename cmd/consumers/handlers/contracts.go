package handlers

import (
	"context"
	"errors"

	"coinmachine/internal/notification"
	"coinmachine/internal/transaction"
)

var ErrUnexpectedEventType = errors.New("unexpected event type")

type AuditorContract interface {
	Record(ctx context.Context, eventName, txnID string, fields map[string]any)
}

type MetricsContract interface {
	OrdersCreatedAdd(n int64)
	PaymentsCapturedAdd(n int64)
	PaymentsClosedAdd(n int64)
	DispensesStartedAdd(n int64)
	DispensesCompletedAdd(n int64)
	DispensesFailedAdd(n int64)
	TransactionsReclaimedAdd(n int64)
}

type NotifierContract interface {
	Notify(ctx context.Context, txnID string, severity notification.Severity, subject, body string)
}

type DeadLetterContract interface {
	SendToDLQ(ctx context.Context, topic string, reason string, payload any)
}

type TransactionReaderContract interface {
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
}

package handlers

import (
	"context"

	"coinmachine/internal/notification"
	"coinmachine/internal/transaction"

	"github.com/stretchr/testify/mock"
)

type AuditorMock struct {
	mock.Mock
	AuditorContract
}

func (m *AuditorMock) Record(ctx context.Context, eventName, txnID string, fields map[string]any) {
	m.Called(ctx, eventName, txnID, fields)
}

type NotifierMock struct {
	mock.Mock
	NotifierContract
}

func (m *NotifierMock) Notify(ctx context.Context, txnID string, severity notification.Severity, subject, body string) {
	m.Called(ctx, txnID, severity, subject, body)
}

type DeadLetterMock struct {
	mock.Mock
	DeadLetterContract
}

func (m *DeadLetterMock) SendToDLQ(ctx context.Context, topic string, reason string, payload any) {
	m.Called(ctx, topic, reason, payload)
}

type TransactionReaderMock struct {
	mock.Mock
	TransactionReaderContract
}

func (m *TransactionReaderMock) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

type MetricsMock struct {
	mock.Mock
	MetricsContract
}

func (m *MetricsMock) OrdersCreatedAdd(n int64)         { m.Called(n) }
func (m *MetricsMock) PaymentsCapturedAdd(n int64)      { m.Called(n) }
func (m *MetricsMock) PaymentsClosedAdd(n int64)        { m.Called(n) }
func (m *MetricsMock) DispensesStartedAdd(n int64)      { m.Called(n) }
func (m *MetricsMock) DispensesCompletedAdd(n int64)    { m.Called(n) }
func (m *MetricsMock) DispensesFailedAdd(n int64)       { m.Called(n) }
func (m *MetricsMock) TransactionsReclaimedAdd(n int64) { m.Called(n) }

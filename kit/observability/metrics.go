package observability

import "sync/atomic"

type Metrics struct {
	OrdersCreated         atomic.Int64
	PaymentsCaptured      atomic.Int64
	PaymentsClosed        atomic.Int64
	DispensesStarted      atomic.Int64
	DispensesCompleted    atomic.Int64
	DispensesFailed       atomic.Int64
	TransactionsReclaimed atomic.Int64
	WebhooksAccepted      atomic.Int64
	WebhooksIgnored       atomic.Int64
	WebhooksRejected      atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) OrdersCreatedAdd(n int64) {
	m.OrdersCreated.Add(n)
}

func (m *Metrics) PaymentsCapturedAdd(n int64) {
	m.PaymentsCaptured.Add(n)
}

// PaymentsClosedAdd counts payments that ended without capture (failed,
// expired, cancelled or dropped at the provider).
func (m *Metrics) PaymentsClosedAdd(n int64) {
	m.PaymentsClosed.Add(n)
}

func (m *Metrics) DispensesStartedAdd(n int64) {
	m.DispensesStarted.Add(n)
}

func (m *Metrics) DispensesCompletedAdd(n int64) {
	m.DispensesCompleted.Add(n)
}

func (m *Metrics) DispensesFailedAdd(n int64) {
	m.DispensesFailed.Add(n)
}

func (m *Metrics) TransactionsReclaimedAdd(n int64) {
	m.TransactionsReclaimed.Add(n)
}

func (m *Metrics) WebhooksAcceptedAdd(n int64) {
	m.WebhooksAccepted.Add(n)
}

func (m *Metrics) WebhooksIgnoredAdd(n int64) {
	m.WebhooksIgnored.Add(n)
}

func (m *Metrics) WebhooksRejectedAdd(n int64) {
	m.WebhooksRejected.Add(n)
}

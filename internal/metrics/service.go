package metrics

import "coinmachine/kit/observability"

type Service struct {
	m *observability.Metrics
}

func NewService(m *observability.Metrics) *Service {
	return &Service{m: m}
}

func (s *Service) Snapshot() map[string]int64 {
	if s.m == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		"orders_created":         s.m.OrdersCreated.Load(),
		"payments_captured":      s.m.PaymentsCaptured.Load(),
		"payments_closed":        s.m.PaymentsClosed.Load(),
		"dispenses_started":      s.m.DispensesStarted.Load(),
		"dispenses_completed":    s.m.DispensesCompleted.Load(),
		"dispenses_failed":       s.m.DispensesFailed.Load(),
		"transactions_reclaimed": s.m.TransactionsReclaimed.Load(),
		"webhooks_accepted":      s.m.WebhooksAccepted.Load(),
		"webhooks_ignored":       s.m.WebhooksIgnored.Load(),
		"webhooks_rejected":      s.m.WebhooksRejected.Load(),
	}
}

package notification

import (
	"context"
	"sync"
	"time"

	"coinmachine/kit/observability"
)

type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityAction Severity = "action_required"
)

const defaultOutboxCap = 256

// Notice is a message for whoever operates the machines.
type Notice struct {
	TxnID    string    `json:"txnid"`
	Severity Severity  `json:"severity"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	At       time.Time `json:"at"`
}

// Service logs operator notices and keeps the most recent ones for the
// operator endpoint.
type Service struct {
	logger *observability.Logger
	now    func() time.Time

	mu     sync.Mutex
	recent []Notice
	cap    int
}

func NewService(logger *observability.Logger) *Service {
	return &Service{logger: logger, now: func() time.Time { return time.Now().UTC() }, cap: defaultOutboxCap}
}

func (s *Service) Notify(ctx context.Context, txnID string, severity Severity, subject, body string) {
	n := Notice{TxnID: txnID, Severity: severity, Subject: subject, Body: body, At: s.now()}

	s.mu.Lock()
	s.recent = append(s.recent, n)
	if over := len(s.recent) - s.cap; over > 0 {
		s.recent = append([]Notice(nil), s.recent[over:]...)
	}
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	if severity == SeverityAction {
		s.logger.Warn("operator notice", "txnid", txnID, "severity", severity, "subject", subject, "body", body)
		return
	}
	s.logger.Info("operator notice", "txnid", txnID, "severity", severity, "subject", subject, "body", body)
}

// Recent returns notices newest first.
func (s *Service) Recent(limit int) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]Notice, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

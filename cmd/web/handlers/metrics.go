package handlers

import (
	"net/http"

	"coinmachine/internal/metrics"
	"coinmachine/internal/notification"
	"coinmachine/internal/recovery"
)

type NoticesContract interface {
	Recent(limit int) []notification.Notice
}

type DeadLettersContract interface {
	DeadLetters() []recovery.DeadLetter
}

type Metrics struct {
	svc     *metrics.Service
	notices NoticesContract
	dlq     DeadLettersContract
}

func NewMetrics(svc *metrics.Service, notices NoticesContract, dlq DeadLettersContract) *Metrics {
	return &Metrics{svc: svc, notices: notices, dlq: dlq}
}

func (h *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// Operator lists what needs a human: recent notices and dead letters.
func (h *Metrics) Operator(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"notices": []notification.Notice{}, "dead_letters": []recovery.DeadLetter{}}
	if h.notices != nil {
		if n := h.notices.Recent(50); len(n) > 0 {
			body["notices"] = n
		}
	}
	if h.dlq != nil {
		if d := h.dlq.DeadLetters(); len(d) > 0 {
			body["dead_letters"] = d
		}
	}
	writeJSON(w, http.StatusOK, body)
}

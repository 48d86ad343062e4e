package handlers

import "net/http"

const banner = "Coin Machine Backend Active"

type Health struct {
	health HealthContract
}

func NewHealth(healthSvc HealthContract) *Health { return &Health{health: healthSvc} }

func (h *Health) Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(banner))
}

func (h *Health) Handler(w http.ResponseWriter, r *http.Request) {
	res := h.health.Check(r.Context())
	status := http.StatusOK
	if !res.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

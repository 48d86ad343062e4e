package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"coinmachine/cmd/web/validator"
	"coinmachine/internal/readmodels"
	"coinmachine/internal/transaction"

	"github.com/go-chi/chi/v5"
)

// DefaultDeviceID identifies callers that predate device ids, such as the
// single-machine firmware.
const DefaultDeviceID = "default"

type DispenseServiceContract interface {
	Next(ctx context.Context) (*transaction.Transaction, error)
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
	Lock(ctx context.Context, id, device string) (transaction.Transition, error)
	Progress(ctx context.Context, id, device string, count int64) (transaction.Transition, error)
	Complete(ctx context.Context, id, device string, count int64) (transaction.Transition, error)
	Fail(ctx context.Context, id, device, reason string) (transaction.Transition, error)
}

type HistoryContract interface {
	Get(txnID string) (readmodels.TransactionView, bool)
}

type Dispense struct {
	json    *validator.JSON
	txns    DispenseServiceContract
	history HistoryContract
}

func NewDispense(jsonV *validator.JSON, txns DispenseServiceContract, history HistoryContract) *Dispense {
	return &Dispense{json: jsonV, txns: txns, history: history}
}

type deviceReq struct {
	DeviceID       string `json:"device_id"`
	DispensedCount *int64 `json:"dispensed_count"`
	Reason         string `json:"reason"`
}

// LatestPayment serves the legacy firmware poll: {paid:false} or the oldest
// undispensed paid transaction.
func (h *Dispense) LatestPayment(w http.ResponseWriter, r *http.Request) {
	t, err := h.txns.Next(r.Context())
	if errors.Is(err, transaction.ErrNoneAvailable) {
		writeJSON(w, http.StatusOK, map[string]any{"paid": false})
		return
	}
	if err != nil {
		log.Printf("layer=handler component=dispense method=LatestPayment err=%v", err)
		writeError(w, err)
		return
	}
	body := transactionBody(t)
	body["paid"] = true
	writeJSON(w, http.StatusOK, body)
}

func (h *Dispense) Next(w http.ResponseWriter, r *http.Request) {
	t, err := h.txns.Next(r.Context())
	if errors.Is(err, transaction.ErrNoneAvailable) {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	if err != nil {
		log.Printf("layer=handler component=dispense method=Next err=%v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "transaction": transactionBody(t)})
}

func (h *Dispense) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.txns.Get(r.Context(), id)
	if err != nil {
		log.Printf("layer=handler component=dispense method=Get txnid=%s err=%v", id, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionBody(t))
}

func (h *Dispense) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := h.history.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found", "message": "no history for " + id})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Dispense) Lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Lock", func(ctx context.Context, id string, req deviceReq) (transaction.Transition, error) {
		return h.txns.Lock(ctx, id, req.DeviceID)
	})
}

func (h *Dispense) Progress(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Progress", func(ctx context.Context, id string, req deviceReq) (transaction.Transition, error) {
		if req.DispensedCount == nil {
			return transaction.Transition{}, validator.ErrInvalidJSON
		}
		return h.txns.Progress(ctx, id, req.DeviceID, *req.DispensedCount)
	})
}

func (h *Dispense) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Complete", func(ctx context.Context, id string, req deviceReq) (transaction.Transition, error) {
		var count int64
		if req.DispensedCount != nil {
			count = *req.DispensedCount
		}
		return h.txns.Complete(ctx, id, req.DeviceID, count)
	})
}

func (h *Dispense) Fail(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Fail", func(ctx context.Context, id string, req deviceReq) (transaction.Transition, error) {
		return h.txns.Fail(ctx, id, req.DeviceID, req.Reason)
	})
}

func (h *Dispense) transition(w http.ResponseWriter, r *http.Request, method string, call func(ctx context.Context, id string, req deviceReq) (transaction.Transition, error)) {
	id := chi.URLParam(r, "id")
	var req deviceReq
	if r.ContentLength != 0 {
		if err := h.json.Decode(w, r, &req); err != nil {
			log.Printf("layer=handler component=dispense method=%s txnid=%s err=%v", method, id, err)
			writeError(w, err)
			return
		}
	}
	if req.DeviceID == "" {
		req.DeviceID = DefaultDeviceID
	}

	tr, err := call(r.Context(), id, req)
	if err != nil {
		log.Printf("layer=handler component=dispense method=%s txnid=%s device=%s err=%v", method, id, req.DeviceID, err)
		writeError(w, err)
		return
	}
	body := transactionBody(tr.Transaction)
	body["applied"] = tr.Applied
	writeJSON(w, http.StatusOK, body)
}

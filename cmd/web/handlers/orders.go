package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"coinmachine/cmd/web/validator"
	"coinmachine/internal/health"
	"coinmachine/internal/order"
	"coinmachine/kit/middleware"

	"github.com/shopspring/decimal"
)

type OrderServiceContract interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (*order.Order, error)
}

type HealthContract interface {
	Check(ctx context.Context) health.Result
}

type Orders struct {
	json   *validator.JSON
	orders OrderServiceContract
	health HealthContract
}

func NewOrders(jsonV *validator.JSON, orders OrderServiceContract, healthSvc HealthContract) *Orders {
	return &Orders{json: jsonV, orders: orders, health: healthSvc}
}

// createOrderReq accepts the amount as a JSON number or a numeric string.
type createOrderReq struct {
	Amount json.Number `json:"amount"`
}

func (h *Orders) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := h.json.Decode(w, r, &req); err != nil {
		log.Printf("layer=handler component=orders method=Create err=%v", err)
		writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		log.Printf("layer=handler component=orders method=Create amount=%q err=%v", req.Amount, err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request", "message": "amount must be a number"})
		return
	}
	if h.health != nil {
		res := h.health.Check(r.Context())
		if !res.OK {
			log.Printf("layer=handler component=orders method=Create err=service_unavailable checks=%v", res.Checks)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "down", "checks": res.Checks})
			return
		}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateRequest{
		Amount:         amount,
		IdempotencyKey: r.Header.Get(middleware.IdempotencyHeader),
	})
	if err != nil {
		log.Printf("layer=handler component=orders method=Create amount=%s err=%v", amount.String(), err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"order_id":     o.TransactionID,
		"amount":       o.Amount,
		"payment_link": o.CheckoutURL,
		"reference":    o.Reference,
		"session_id":   o.SessionID,
	})
}

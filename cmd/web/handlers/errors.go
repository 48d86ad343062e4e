package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"coinmachine/cmd/web/validator"
	"coinmachine/internal/order"
	"coinmachine/internal/transaction"
	"coinmachine/internal/webhook"
	"coinmachine/kit/db"
)

// statusFor maps domain errors onto HTTP status codes. Order matters: a
// joined error carrying both a domain cause and a store cause is reported by
// the domain cause.
func statusFor(err error) int {
	switch {
	case errors.Is(err, webhook.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, validator.ErrInvalidJSON),
		errors.Is(err, webhook.ErrMalformedPayload),
		errors.Is(err, transaction.ErrPolicyViolation),
		errors.Is(err, transaction.ErrInvalidRequest),
		db.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, transaction.ErrInvalidTransition), db.IsConflict(err):
		return http.StatusConflict
	case db.IsNotFound(err), errors.Is(err, transaction.ErrNoneAvailable):
		return http.StatusNotFound
	case errors.Is(err, order.ErrProviderUnavailable):
		return http.StatusBadGateway
	case db.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorCode is the machine-readable error kind in response bodies.
func errorCode(err error) string {
	switch {
	case errors.Is(err, transaction.ErrLockHeld):
		return "lock_held"
	case errors.Is(err, transaction.ErrStaleProgress):
		return "stale_progress"
	case errors.Is(err, transaction.ErrNotActionable):
		return "not_actionable"
	case errors.Is(err, transaction.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, transaction.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, webhook.ErrAuthentication):
		return "authentication_failed"
	}
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadGateway:
		return "provider_unavailable"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	}
	return "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]any{"error": errorCode(err), "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("layer=handler component=response method=writeJSON err=%v", err)
	}
}

func transactionBody(t *transaction.Transaction) map[string]any {
	return map[string]any{
		"txnid":              t.ID,
		"amount":             t.Amount,
		"status":             t.Status,
		"dispensed":          t.Dispensed,
		"dispensed_count":    t.DispensedCount,
		"locked_by":          t.LockedBy,
		"provider":           t.Provider,
		"provider_reference": t.ProviderReference,
		"reason":             t.Reason,
		"version":            t.Version,
		"created_at":         t.CreatedAt,
		"updated_at":         t.UpdatedAt,
	}
}

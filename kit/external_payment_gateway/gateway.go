package external_payment_gateway

import (
	"context"
	"errors"
)

var ErrTimeout = errors.New("gateway timeout")
var ErrServer = errors.New("gateway 5xx")
var ErrClient = errors.New("gateway 4xx")
var ErrCircuitOpen = errors.New("circuit open")

// Checkout is the payer-facing side of a provider payment request.
type Checkout struct {
	Reference string
	URL       string
	SessionID string
}

type Gateway interface {
	CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (Checkout, error)
}

// Retryable reports whether err is a transient provider failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrServer) || errors.Is(err, context.DeadlineExceeded)
}

// ErrorCode condenses a gateway error into the short code used in logs and
// dead letters.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCircuitOpen):
		return "cb_open"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "408"
	case errors.Is(err, ErrServer):
		return "5xx"
	case errors.Is(err, ErrClient):
		return "4xx"
	default:
		return "unknown"
	}
}

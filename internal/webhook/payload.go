package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"coinmachine/internal/transaction"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

const (
	TypePaymentSuccess     = "PAYMENT_SUCCESS_WEBHOOK"
	TypePaymentFailed      = "PAYMENT_FAILED_WEBHOOK"
	TypePaymentUserDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

type cashfreePayload struct {
	Type      string        `json:"type"`
	EventTime string        `json:"event_time"`
	Data      *cashfreeData `json:"data"`
}

type cashfreeData struct {
	Order   *cashfreeOrder   `json:"order"`
	Payment *cashfreePayment `json:"payment"`
}

type cashfreeOrder struct {
	OrderID     string      `json:"order_id"`
	OrderAmount json.Number `json:"order_amount"`
}

type cashfreePayment struct {
	CfPaymentID    json.Number `json:"cf_payment_id"`
	PaymentStatus  string      `json:"payment_status"`
	PaymentAmount  json.Number `json:"payment_amount"`
	PaymentMessage string      `json:"payment_message"`
}

// Notification is a provider callback reduced to what reconciliation needs.
type Notification struct {
	Type          string
	TxnID         string
	Event         transaction.Event
	Amount        string
	PaymentStatus string
	PaymentID     string
	Message       string
	// Probe is set for signed deliveries without an order, such as the
	// provider dashboard's test webhook.
	Probe bool
}

// Normalize parses a verified body. Unknown types yield an empty Event.
func Normalize(raw []byte) (Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p cashfreePayload
	if err := dec.Decode(&p); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Type == "" {
		return Notification{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}

	n := Notification{Type: p.Type}
	if p.Data == nil || p.Data.Order == nil {
		n.Probe = true
		return n, nil
	}

	n.TxnID = strings.TrimSpace(p.Data.Order.OrderID)
	n.Amount = p.Data.Order.OrderAmount.String()
	if pay := p.Data.Payment; pay != nil {
		n.PaymentID = pay.CfPaymentID.String()
		n.PaymentStatus = strings.ToUpper(pay.PaymentStatus)
		n.Message = pay.PaymentMessage
		if pay.PaymentAmount != "" {
			n.Amount = pay.PaymentAmount.String()
		}
	}
	if n.TxnID == "" && n.PaymentID != "" {
		n.TxnID = "cf_" + n.PaymentID
	}
	if n.TxnID == "" {
		return Notification{}, fmt.Errorf("%w: no order_id or cf_payment_id", ErrMalformedPayload)
	}
	n.Event = mapEvent(n.Type, n.PaymentStatus)
	return n, nil
}

func mapEvent(eventType, paymentStatus string) transaction.Event {
	switch eventType {
	case TypePaymentSuccess:
		return transaction.EventPaymentCaptured
	case TypePaymentFailed:
		switch paymentStatus {
		case "CANCELLED", "VOID":
			return transaction.EventPaymentCancelled
		case "EXPIRED":
			return transaction.EventPaymentExpired
		}
		return transaction.EventPaymentFailed
	case TypePaymentUserDropped:
		return transaction.EventPaymentDropped
	}
	return ""
}

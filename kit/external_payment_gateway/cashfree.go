package external_payment_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const cashfreeAPIVersion = "2023-08-01"

type CashfreeConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	NotifyURL     string
	CustomerID    string
	CustomerPhone string
	Timeout       time.Duration
}

// CashfreeGateway creates orders through the Cashfree PG REST API.
type CashfreeGateway struct {
	cfg  CashfreeConfig
	http *http.Client
}

func NewCashfreeGateway(cfg CashfreeConfig) *CashfreeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CustomerID == "" {
		cfg.CustomerID = "customer_1"
	}
	if cfg.CustomerPhone == "" {
		cfg.CustomerPhone = "9999999999"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &CashfreeGateway{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type cashfreeOrderRequest struct {
	OrderID         string                  `json:"order_id"`
	OrderAmount     int64                   `json:"order_amount"`
	OrderCurrency   string                  `json:"order_currency"`
	CustomerDetails cashfreeCustomerDetails `json:"customer_details"`
	OrderMeta       *cashfreeOrderMeta      `json:"order_meta,omitempty"`
}

type cashfreeCustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	NotifyURL string `json:"notify_url"`
}

type cashfreeOrderResponse struct {
	CfOrderID        json.RawMessage `json:"cf_order_id"`
	OrderID          string          `json:"order_id"`
	OrderAmount      float64         `json:"order_amount"`
	PaymentLink      string          `json:"payment_link"`
	PaymentSessionID string          `json:"payment_session_id"`
	Message          string          `json:"message"`
	Code             string          `json:"code"`
}

// CreatePaymentRequest is safe to repeat for one orderID: when Cashfree
// answers that the order already exists, the stored order is fetched and its
// session returned instead.
func (g *CashfreeGateway) CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (Checkout, error) {
	reqBody := cashfreeOrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount,
		OrderCurrency: "INR",
		CustomerDetails: cashfreeCustomerDetails{
			CustomerID:    g.cfg.CustomerID,
			CustomerPhone: g.cfg.CustomerPhone,
		},
	}
	if g.cfg.NotifyURL != "" {
		reqBody.OrderMeta = &cashfreeOrderMeta{NotifyURL: g.cfg.NotifyURL}
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return Checkout{}, errors.Join(ErrClient, err)
	}

	out, status, err := g.do(ctx, http.MethodPost, "/pg/orders", b, orderID)
	if err != nil {
		return Checkout{}, err
	}
	if status == http.StatusConflict {
		return g.fetchOrder(ctx, orderID, amount)
	}
	if err := classifyStatus(status, out, orderID, "CreatePaymentRequest"); err != nil {
		return Checkout{}, err
	}
	return toCheckout(out)
}

// fetchOrder resolves a duplicate create, typically a retry after the first
// attempt timed out on our side but reached Cashfree.
func (g *CashfreeGateway) fetchOrder(ctx context.Context, orderID string, amount int64) (Checkout, error) {
	out, status, err := g.do(ctx, http.MethodGet, "/pg/orders/"+url.PathEscape(orderID), nil, orderID)
	if err != nil {
		return Checkout{}, err
	}
	if err := classifyStatus(status, out, orderID, "fetchOrder"); err != nil {
		return Checkout{}, err
	}
	if out.OrderAmount != 0 && out.OrderAmount != float64(amount) {
		log.Printf("layer=gateway component=cashfree method=fetchOrder order_id=%s amount=%d existing_amount=%v", orderID, amount, out.OrderAmount)
		return Checkout{}, fmt.Errorf("%w: order %s exists with amount %v", ErrClient, orderID, out.OrderAmount)
	}
	return toCheckout(out)
}

func (g *CashfreeGateway) do(ctx context.Context, method, path string, payload []byte, orderID string) (cashfreeOrderResponse, int, error) {
	var out cashfreeOrderResponse
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, body)
	if err != nil {
		return out, 0, errors.Join(ErrClient, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-client-id", g.cfg.ClientID)
	req.Header.Set("x-client-secret", g.cfg.ClientSecret)
	req.Header.Set("x-api-version", cashfreeAPIVersion)

	resp, err := g.http.Do(req)
	if err != nil {
		log.Printf("layer=gateway component=cashfree method=%s order_id=%s err=%v", method, orderID, err)
		return out, 0, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, 0, errors.Join(ErrServer, err)
	}
	_ = json.Unmarshal(raw, &out)
	return out, resp.StatusCode, nil
}

func classifyStatus(status int, out cashfreeOrderResponse, orderID, method string) error {
	switch {
	case status >= 500:
		log.Printf("layer=gateway component=cashfree method=%s order_id=%s status=%d message=%q", method, orderID, status, out.Message)
		return fmt.Errorf("%w: status %d: %s", ErrServer, status, out.Message)
	case status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", ErrTimeout, status)
	case status >= 400:
		log.Printf("layer=gateway component=cashfree method=%s order_id=%s status=%d code=%s message=%q", method, orderID, status, out.Code, out.Message)
		return fmt.Errorf("%w: status %d: %s", ErrClient, status, out.Message)
	}
	return nil
}

func toCheckout(out cashfreeOrderResponse) (Checkout, error) {
	if out.PaymentLink == "" && out.PaymentSessionID == "" {
		return Checkout{}, fmt.Errorf("%w: response carries no payment link or session", ErrServer)
	}
	return Checkout{
		Reference: rawString(out.CfOrderID),
		URL:       out.PaymentLink,
		SessionID: out.PaymentSessionID,
	}, nil
}

func classifyTransportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return errors.Join(ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(ErrServer, err)
}

// rawString accepts cf_order_id as either a JSON string or number.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

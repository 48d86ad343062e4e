package external_payment_gateway

import (
	"context"
	"fmt"
)

// FakeGateway issues local checkout links. Amounts listed in Fail return the
// mapped error, which lets tests and demos drive provider failures.
type FakeGateway struct {
	BaseURL string
	Fail    map[int64]error
}

func NewFakeGateway(baseURL string) *FakeGateway {
	return &FakeGateway{BaseURL: baseURL, Fail: map[int64]error{}}
}

func (g *FakeGateway) CreatePaymentRequest(ctx context.Context, orderID string, amount int64) (Checkout, error) {
	if err := ctx.Err(); err != nil {
		return Checkout{}, err
	}
	if err, ok := g.Fail[amount]; ok {
		return Checkout{}, err
	}
	return Checkout{
		Reference: "fake_" + orderID,
		URL:       fmt.Sprintf("%s/pay/%s", g.BaseURL, orderID),
		SessionID: "session_" + orderID,
	}, nil
}

package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"coinmachine/internal/transaction"
	"coinmachine/kit/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrProviderUnavailable = errors.New("payment provider unavailable")

// idempotencyNamespace scopes order ids derived from Idempotency-Key values.
var idempotencyNamespace = uuid.MustParse("6f1c2b9e-3d4a-5e8f-9a0b-1c2d3e4f5a6b")

const orderIDPrefix = "ORD_"

type CreateRequest struct {
	Amount         decimal.Decimal
	IdempotencyKey string
}

type Order struct {
	TransactionID string
	Amount        int64
	CheckoutURL   string
	Reference     string
	SessionID     string
}

type Service struct {
	transactions TransactionServiceContract
	gateway      GatewayContract
	provider     string
	newID        func() string
}

func NewService(transactions TransactionServiceContract, gateway GatewayContract, provider string) *Service {
	return &Service{
		transactions: transactions,
		gateway:      gateway,
		provider:     provider,
		newID:        uuid.NewString,
	}
}

// CreateOrder checks the amount, asks the provider for a checkout and stores
// the created transaction. Nothing is sent to the provider for an amount that
// fails policy.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	policy := s.transactions.Policy()
	if !policy.Validate(req.Amount) {
		err := fmt.Errorf("%w: amount must be a whole number between %d and %d", transaction.ErrPolicyViolation, policy.Min, policy.Max)
		log.Printf("layer=service component=order method=CreateOrder amount=%s err=%v", req.Amount.String(), err)
		return nil, errors.Join(db.ErrInvalid, err)
	}
	amount := req.Amount.IntPart()
	id := s.orderID(req.IdempotencyKey)

	checkout, err := s.gateway.CreatePaymentRequest(ctx, id, amount)
	if err != nil {
		log.Printf("layer=service component=order method=CreateOrder txnid=%s amount=%d err=%v", id, amount, err)
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	t, err := s.transactions.Initialize(ctx, transaction.InitRequest{
		ID:                id,
		Amount:            amount,
		Provider:          s.provider,
		ProviderReference: checkout.Reference,
	})
	if err != nil {
		log.Printf("layer=service component=order method=CreateOrder txnid=%s amount=%d err=%v", id, amount, err)
		return nil, err
	}

	return &Order{
		TransactionID: t.ID,
		Amount:        t.Amount,
		CheckoutURL:   checkout.URL,
		Reference:     checkout.Reference,
		SessionID:     checkout.SessionID,
	}, nil
}

func (s *Service) orderID(idempotencyKey string) string {
	if idempotencyKey != "" {
		return orderIDPrefix + uuid.NewSHA1(idempotencyNamespace, []byte(idempotencyKey)).String()
	}
	return orderIDPrefix + s.newID()
}

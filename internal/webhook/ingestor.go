package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"coinmachine/internal/events"
	"coinmachine/internal/transaction"
	"coinmachine/kit/cache"
	"coinmachine/kit/db"
	"coinmachine/kit/observability"
)

type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeStale           Outcome = "stale"
	OutcomePolicyViolation Outcome = "policy_violation"
	OutcomeUnknown         Outcome = "unknown_transaction"
	OutcomeRejected        Outcome = "rejected"
)

const (
	ProviderCashfree = "cashfree"

	deliveryKeyPrefix = "webhook:"
	DeliveryTTL       = 24 * time.Hour
)

type Result struct {
	Outcome Outcome
	TxnID   string
	Type    string
	Event   transaction.Event
	Status  transaction.Status
}

// Acknowledge reports whether the provider should be told the delivery
// succeeded.
func (r Result) Acknowledge() bool {
	return r.Outcome != OutcomeRejected
}

type Ingestor struct {
	verifier     *Verifier
	transactions TransactionServiceContract
	deliveries   cache.Cache
	bus          PublisherContract
	metrics      *observability.Metrics
	logger       *observability.Logger
	now          func() time.Time
}

func NewIngestor(verifier *Verifier, transactions TransactionServiceContract, deliveries cache.Cache, bus PublisherContract, metrics *observability.Metrics, logger *observability.Logger) *Ingestor {
	return &Ingestor{
		verifier:     verifier,
		transactions: transactions,
		deliveries:   deliveries,
		bus:          bus,
		metrics:      metrics,
		logger:       logger.With("component", "webhook"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ingest authenticates raw before reading it, then applies the mapped
// transition. A nil error means the delivery should be acknowledged, whether
// or not it changed anything. Authentication and structural failures return
// ErrAuthentication or ErrMalformedPayload; store failures are returned as is
// so the provider retries.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte, timestamp, signature string) (Result, error) {
	if err := i.verifier.Verify(raw, timestamp, signature); err != nil {
		i.metrics.WebhooksRejectedAdd(1)
		log.Printf("layer=service component=webhook method=Ingest err=%v", err)
		return Result{Outcome: OutcomeRejected}, err
	}

	key := deliveryKeyPrefix + digest(raw)
	if prev, err := i.deliveries.Get(ctx, key); err == nil {
		i.metrics.WebhooksAcceptedAdd(1)
		i.metrics.WebhooksIgnoredAdd(1)
		i.logger.Info("webhook redelivered", "first_outcome", prev)
		return Result{Outcome: OutcomeDuplicate}, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("layer=service component=webhook method=Ingest step=dedup err=%v", err)
	}

	n, err := Normalize(raw)
	if err != nil {
		i.metrics.WebhooksRejectedAdd(1)
		log.Printf("layer=service component=webhook method=Ingest err=%v", err)
		return Result{Outcome: OutcomeRejected}, err
	}

	res, err := i.apply(ctx, n)
	if err != nil {
		log.Printf("layer=service component=webhook method=Ingest txnid=%s type=%s err=%v", n.TxnID, n.Type, err)
		return res, err
	}

	i.metrics.WebhooksAcceptedAdd(1)
	if res.Outcome != OutcomeApplied {
		i.metrics.WebhooksIgnoredAdd(1)
	}
	if err := i.deliveries.Set(ctx, key, string(res.Outcome), DeliveryTTL); err != nil {
		log.Printf("layer=service component=webhook method=Ingest step=remember txnid=%s err=%v", n.TxnID, err)
	}
	return res, nil
}

func (i *Ingestor) apply(ctx context.Context, n Notification) (Result, error) {
	res := Result{TxnID: n.TxnID, Type: n.Type, Event: n.Event}

	if n.Probe {
		res.Outcome = OutcomeIgnored
		i.logger.Info("webhook without order acknowledged", "type", n.Type)
		return res, nil
	}
	if n.Event == "" {
		res.Outcome = OutcomeIgnored
		i.ignored(ctx, n, "unmapped event type")
		return res, nil
	}

	u := transaction.ProviderUpdate{
		ID:                n.TxnID,
		Event:             n.Event,
		Provider:          ProviderCashfree,
		ProviderReference: n.PaymentID,
		ProviderEventType: n.Type,
	}
	if n.Event == transaction.EventPaymentCaptured {
		amount, err := i.transactions.Policy().Parse(n.Amount)
		if err != nil {
			res.Outcome = OutcomePolicyViolation
			i.ignored(ctx, n, err.Error())
			return res, nil
		}
		u.Amount = amount
	} else {
		u.Reason = n.Message
	}

	tr, err := i.transactions.ApplyProviderEvent(ctx, u)
	switch {
	case err == nil && tr.Applied:
		res.Outcome = OutcomeApplied
		res.Status = tr.To
		i.logger.Info("webhook applied", "txnid", n.TxnID, "type", n.Type, "from", tr.From, "to", tr.To)
	case err == nil:
		res.Outcome = OutcomeDuplicate
		res.Status = tr.To
	case errors.Is(err, transaction.ErrInvalidTransition):
		res.Outcome = OutcomeStale
		if tr.Transaction != nil {
			res.Status = tr.Transaction.Status
		}
		i.ignored(ctx, n, err.Error())
	case errors.Is(err, transaction.ErrPolicyViolation):
		res.Outcome = OutcomePolicyViolation
		i.ignored(ctx, n, err.Error())
	case db.IsNotFound(err):
		res.Outcome = OutcomeUnknown
		i.ignored(ctx, n, "unknown transaction")
	case db.IsInvalid(err):
		res.Outcome = OutcomeRejected
		return res, errors.Join(ErrMalformedPayload, err)
	default:
		return res, err
	}
	return res, nil
}

func (i *Ingestor) ignored(ctx context.Context, n Notification, reason string) {
	i.logger.Warn("webhook ignored", "txnid", n.TxnID, "type", n.Type, "reason", reason)
	if i.bus != nil {
		i.bus.Publish(ctx, events.WebhookIgnored{TxnID: n.TxnID, EventType: n.Type, Reason: reason, At: i.now()})
	}
}

func digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

package handlers

import (
	"context"
	"fmt"

	"coinmachine/internal/events"
	"coinmachine/kit/broker"
	"coinmachine/kit/observability"
)

const TopicAttention = "operator.attention"

// RecoveryEvent dead-letters transactions that need manual settlement,
// attaching the stored state as of handling time.
type RecoveryEvent struct {
	logger *observability.Logger
	dlq    DeadLetterContract
	txns   TransactionReaderContract
}

func NewRecoveryEvent(logger *observability.Logger, dlq DeadLetterContract, txns TransactionReaderContract) *RecoveryEvent {
	return &RecoveryEvent{logger: logger, dlq: dlq, txns: txns}
}

func (h *RecoveryEvent) HandleAttentionRequired(ctx context.Context, evt broker.Event) error {
	e, ok := evt.(events.AttentionRequired)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}

	payload := map[string]any{"txnid": e.TxnID, "amount": e.Amount, "detail": e.Detail}
	if h.txns != nil {
		t, err := h.txns.Get(ctx, e.TxnID)
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("attention without stored state", "txnid", e.TxnID, "error", err.Error())
			}
		} else {
			payload["status"] = t.Status
			payload["dispensed_count"] = t.DispensedCount
			payload["provider_reference"] = t.ProviderReference
		}
	}
	h.dlq.SendToDLQ(ctx, TopicAttention, e.Kind, payload)
	return nil
}

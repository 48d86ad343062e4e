package handlers

import (
	"context"

	"coinmachine/internal/events"
	"coinmachine/kit/broker"
)

type AuditEvent struct {
	audit AuditorContract
}

func NewAuditEvent(a AuditorContract) *AuditEvent {
	return &AuditEvent{audit: a}
}

// HandleAny writes every transaction event to the audit trail.
func (h *AuditEvent) HandleAny(ctx context.Context, evt broker.Event) error {
	if h.audit == nil {
		return nil
	}

	var txnID string
	fields := map[string]any{}
	switch e := evt.(type) {
	case events.TransactionCreated:
		txnID = e.TxnID
		fields["amount"] = e.Amount
		fields["status"] = e.Status
		fields["provider"] = e.Provider
		fields["provider_reference"] = e.ProviderReference
	case events.TransactionTransitioned:
		txnID = e.TxnID
		fields["from"] = e.From
		fields["to"] = e.To
		fields["cause"] = e.Cause
		fields["amount"] = e.Amount
		fields["dispensed_count"] = e.DispensedCount
		fields["version"] = e.Version
		if e.Reason != "" {
			fields["reason"] = e.Reason
		}
		if e.Device != "" {
			fields["device"] = e.Device
		}
		if e.ProviderEventType != "" {
			fields["provider_event_type"] = e.ProviderEventType
		}
	case events.WebhookIgnored:
		txnID = e.TxnID
		fields["event_type"] = e.EventType
		fields["reason"] = e.Reason
	case events.AttentionRequired:
		txnID = e.TxnID
		fields["kind"] = e.Kind
		fields["detail"] = e.Detail
		fields["amount"] = e.Amount
	case events.TransactionReclaimed:
		txnID = e.TxnID
		fields["device"] = e.Device
		fields["amount"] = e.Amount
		fields["dispensed_count"] = e.DispensedCount
		fields["idle_for"] = e.IdleFor
	default:
		return nil
	}

	h.audit.Record(ctx, evt.Name(), txnID, fields)
	return nil
}

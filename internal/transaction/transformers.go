package transaction

import (
	"time"

	"coinmachine/internal/events"
)

func ToTransactionCreatedEvent(t *Transaction) events.TransactionCreated {
	return events.TransactionCreated{
		TxnID:             t.ID,
		Amount:            t.Amount,
		Status:            string(t.Status),
		Provider:          t.Provider,
		ProviderReference: t.ProviderReference,
		At:                t.CreatedAt,
	}
}

func ToTransitionedEvent(from Status, next *Transaction, in Input) events.TransactionTransitioned {
	return events.TransactionTransitioned{
		TxnID:             next.ID,
		From:              string(from),
		To:                string(next.Status),
		Cause:             string(in.Event),
		Reason:            in.Reason,
		Amount:            next.Amount,
		DispensedCount:    next.DispensedCount,
		Device:            in.Device,
		Provider:          next.Provider,
		ProviderEventType: in.ProviderEventType,
		Version:           next.Version,
		At:                next.UpdatedAt,
	}
}

func ToAttentionRequiredEvent(t *Transaction, kind, detail string, at time.Time) events.AttentionRequired {
	return events.AttentionRequired{TxnID: t.ID, Kind: kind, Detail: detail, Amount: t.Amount, At: at}
}

func ToReclaimedEvent(t *Transaction, idleFor time.Duration, at time.Time) events.TransactionReclaimed {
	return events.TransactionReclaimed{
		TxnID:          t.ID,
		Device:         t.LockedBy,
		Amount:         t.Amount,
		DispensedCount: t.DispensedCount,
		IdleFor:        idleFor.Truncate(time.Second).String(),
		At:             at,
	}
}

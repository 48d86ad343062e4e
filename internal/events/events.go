package events

import "time"

type TransactionCreated struct {
	TxnID             string    `json:"txnid"`
	Amount            int64     `json:"amount"`
	Status            string    `json:"status"`
	Provider          string    `json:"provider"`
	ProviderReference string    `json:"provider_reference"`
	At                time.Time `json:"at"`
}

func (TransactionCreated) Name() string { return "transaction.created" }

func (e TransactionCreated) PartitionKey() string { return e.TxnID }

// TransactionTransitioned is emitted once per applied state change. Cause is
// the state machine event that produced it.
type TransactionTransitioned struct {
	TxnID             string    `json:"txnid"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Cause             string    `json:"cause"`
	Reason            string    `json:"reason,omitempty"`
	Amount            int64     `json:"amount"`
	DispensedCount    int64     `json:"dispensed_count"`
	Device            string    `json:"device,omitempty"`
	Provider          string    `json:"provider,omitempty"`
	ProviderEventType string    `json:"provider_event_type,omitempty"`
	Version           int64     `json:"version"`
	At                time.Time `json:"at"`
}

func (TransactionTransitioned) Name() string { return "transaction.transitioned" }

func (e TransactionTransitioned) PartitionKey() string { return e.TxnID }

type WebhookIgnored struct {
	TxnID     string    `json:"txnid"`
	EventType string    `json:"event_type"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (WebhookIgnored) Name() string { return "webhook.ignored" }

func (e WebhookIgnored) PartitionKey() string { return e.TxnID }

// AttentionRequired flags a transaction an operator has to resolve by hand,
// typically a refund.
type AttentionRequired struct {
	TxnID  string    `json:"txnid"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

func (AttentionRequired) Name() string { return "operator.attention_required" }

func (e AttentionRequired) PartitionKey() string { return e.TxnID }

type TransactionReclaimed struct {
	TxnID          string    `json:"txnid"`
	Device         string    `json:"device"`
	Amount         int64     `json:"amount"`
	DispensedCount int64     `json:"dispensed_count"`
	IdleFor        string    `json:"idle_for"`
	At             time.Time `json:"at"`
}

func (TransactionReclaimed) Name() string { return "transaction.reclaimed" }

func (e TransactionReclaimed) PartitionKey() string { return e.TxnID }

package readmodels

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"coinmachine/internal/events"
	"coinmachine/kit/broker"
	"coinmachine/kit/db"
)

type TransitionView struct {
	From           string    `json:"from"`
	To             string    `json:"to"`
	Cause          string    `json:"cause"`
	Reason         string    `json:"reason,omitempty"`
	Device         string    `json:"device,omitempty"`
	DispensedCount int64     `json:"dispensed_count"`
	Version        int64     `json:"version"`
	At             time.Time `json:"at"`
}

type TransactionView struct {
	TxnID          string           `json:"txnid"`
	Amount         int64            `json:"amount"`
	Status         string           `json:"status"`
	DispensedCount int64            `json:"dispensed_count"`
	Provider       string           `json:"provider,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	History        []TransitionView `json:"history"`
}

// Projector folds transaction events into per-transaction views. Events with
// a version at or below the last one applied are skipped, so replaying the
// store and then receiving live events is safe.
type Projector struct {
	mu           sync.RWMutex
	transactions map[string]TransactionView
	versions     map[string]int64
}

func NewProjector() *Projector {
	return &Projector{
		transactions: make(map[string]TransactionView),
		versions:     make(map[string]int64),
	}
}

func (p *Projector) Replay(ctx context.Context, store *db.Store) error {
	for _, rec := range store.All(ctx) {
		if err := p.ApplyRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Apply has the broker.Handler signature.
func (p *Projector) Apply(ctx context.Context, evt broker.Event) error {
	switch e := evt.(type) {
	case events.TransactionCreated:
		p.applyCreated(e)
	case events.TransactionTransitioned:
		p.applyTransitioned(e)
	}
	return nil
}

func (p *Projector) ApplyRecord(ctx context.Context, rec db.Record) error {
	switch rec.EventName {
	case (events.TransactionCreated{}).Name():
		var e events.TransactionCreated
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return errors.Join(db.ErrInternal, err)
		}
		p.applyCreated(e)
	case (events.TransactionTransitioned{}).Name():
		var e events.TransactionTransitioned
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return errors.Join(db.ErrInternal, err)
		}
		p.applyTransitioned(e)
	}
	return nil
}

func (p *Projector) Get(txnID string) (TransactionView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.transactions[txnID]
	if ok {
		v.History = append([]TransitionView(nil), v.History...)
	}
	return v, ok
}

func (p *Projector) applyCreated(e events.TransactionCreated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.transactions[e.TxnID]
	cur.TxnID = e.TxnID
	cur.Amount = e.Amount
	cur.Provider = e.Provider
	cur.CreatedAt = e.At
	if !ok {
		cur.Status = e.Status
		cur.UpdatedAt = e.At
	}
	p.transactions[e.TxnID] = cur
}

func (p *Projector) applyTransitioned(e events.TransactionTransitioned) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Version <= p.versions[e.TxnID] {
		return
	}
	p.versions[e.TxnID] = e.Version

	cur := p.transactions[e.TxnID]
	cur.TxnID = e.TxnID
	cur.Amount = e.Amount
	cur.Status = e.To
	cur.DispensedCount = e.DispensedCount
	if e.Provider != "" {
		cur.Provider = e.Provider
	}
	if e.Reason != "" {
		cur.Reason = e.Reason
	}
	if cur.CreatedAt.IsZero() {
		cur.CreatedAt = e.At
	}
	cur.UpdatedAt = e.At
	cur.History = append(cur.History, TransitionView{
		From:           e.From,
		To:             e.To,
		Cause:          e.Cause,
		Reason:         e.Reason,
		Device:         e.Device,
		DispensedCount: e.DispensedCount,
		Version:        e.Version,
		At:             e.At,
	})
	p.transactions[e.TxnID] = cur
}

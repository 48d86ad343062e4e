package transaction

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"coinmachine/kit/db"
)

type SQLRepository struct {
	db db.Client
}

func NewSQLRepository(dbClient db.Client) *SQLRepository {
	return &SQLRepository{db: dbClient}
}

const transactionColumns = "txnid, amount, status, dispensed, dispensed_count, locked_by, provider, provider_reference, provider_event_type, reason, version, created_at, updated_at"

const (
	qTransactionInsert = "INSERT INTO transactions (" + transactionColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) ON CONFLICT (txnid) DO NOTHING"
	qTransactionGet    = "SELECT " + transactionColumns + " FROM transactions WHERE txnid = $1"
	qTransactionCAS    = "UPDATE transactions SET amount = $1, status = $2, dispensed = $3, dispensed_count = $4, locked_by = $5, provider = $6, provider_reference = $7, provider_event_type = $8, reason = $9, version = $10, updated_at = $11 WHERE txnid = $12 AND status = $13 AND version = $14"
	qTransactionNext   = "SELECT " + transactionColumns + " FROM transactions WHERE status IN ('captured', 'dispensing') AND dispensed = FALSE ORDER BY created_at ASC, txnid ASC LIMIT 1"
	qTransactionStale  = "SELECT " + transactionColumns + " FROM transactions WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3"
	qTransactionPing   = "SELECT 1"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		txnid               TEXT PRIMARY KEY,
		amount              BIGINT NOT NULL CHECK (amount > 0),
		status              TEXT NOT NULL,
		dispensed           BOOLEAN NOT NULL DEFAULT FALSE,
		dispensed_count     BIGINT NOT NULL DEFAULT 0 CHECK (dispensed_count >= 0),
		locked_by           TEXT NOT NULL DEFAULT '',
		provider            TEXT NOT NULL DEFAULT '',
		provider_reference  TEXT NOT NULL DEFAULT '',
		provider_event_type TEXT NOT NULL DEFAULT '',
		reason              TEXT NOT NULL DEFAULT '',
		version             BIGINT NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		CHECK (NOT dispensed OR status = 'dispensed')
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_actionable_idx ON transactions (created_at) WHERE status IN ('captured', 'dispensing') AND dispensed = FALSE`,
	`CREATE INDEX IF NOT EXISTS transactions_status_updated_idx ON transactions (status, updated_at)`,
}

// Migrate creates the transactions table and its indexes when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			log.Printf("layer=repo component=transaction repo=SQLRepository method=Migrate err=%v", err)
			return err
		}
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, t *Transaction) (bool, error) {
	n, err := r.db.Exec(
		ctx,
		qTransactionInsert,
		t.ID,
		t.Amount,
		string(t.Status),
		t.Dispensed,
		t.DispensedCount,
		t.LockedBy,
		t.Provider,
		t.ProviderReference,
		t.ProviderEventType,
		t.Reason,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=Create txnid=%s err=%v", t.ID, err)
		return false, err
	}
	return n == 1, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*Transaction, error) {
	row, err := r.db.QueryRow(ctx, qTransactionGet, id)
	if err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=Get txnid=%s err=%v", id, err)
		return nil, err
	}
	t, err := scanTransaction(row)
	if err != nil {
		if !db.IsNotFound(err) {
			log.Printf("layer=repo component=transaction repo=SQLRepository method=Get txnid=%s err=%v", id, err)
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) CompareAndSwap(ctx context.Context, prev, next *Transaction) error {
	n, err := r.db.Exec(
		ctx,
		qTransactionCAS,
		next.Amount,
		string(next.Status),
		next.Dispensed,
		next.DispensedCount,
		next.LockedBy,
		next.Provider,
		next.ProviderReference,
		next.ProviderEventType,
		next.Reason,
		next.Version,
		next.UpdatedAt,
		prev.ID,
		string(prev.Status),
		prev.Version,
	)
	if err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=CompareAndSwap txnid=%s err=%v", prev.ID, err)
		return err
	}
	if n == 0 {
		return db.ErrConflict
	}
	return nil
}

func (r *SQLRepository) NextActionable(ctx context.Context) (*Transaction, error) {
	row, err := r.db.QueryRow(ctx, qTransactionNext)
	if err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=NextActionable err=%v", err)
		return nil, err
	}
	t, err := scanTransaction(row)
	if err != nil {
		if !db.IsNotFound(err) {
			log.Printf("layer=repo component=transaction repo=SQLRepository method=NextActionable err=%v", err)
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, qTransactionStale, string(status), before, limit)
	if err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=ListStale status=%s err=%v", status, err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			log.Printf("layer=repo component=transaction repo=SQLRepository method=ListStale status=%s err=%v", status, err)
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		log.Printf("layer=repo component=transaction repo=SQLRepository method=ListStale status=%s err=%v", status, err)
		return nil, err
	}
	return out, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	row, err := r.db.QueryRow(ctx, qTransactionPing)
	if err != nil {
		return err
	}
	var one int
	return row.Scan(&one)
}

func scanTransaction(row db.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(
		&t.ID,
		&t.Amount,
		&t.Status,
		&t.Dispensed,
		&t.DispensedCount,
		&t.LockedBy,
		&t.Provider,
		&t.ProviderReference,
		&t.ProviderEventType,
		&t.Reason,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

type InMemoryRepository struct {
	mu   sync.Mutex
	data map[string]*Transaction
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[string]*Transaction)}
}

func (r *InMemoryRepository) Create(ctx context.Context, t *Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.ID]; ok {
		return false, nil
	}
	cpy := *t
	r.data[t.ID] = &cpy
	return true, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cpy := *t
	return &cpy, nil
}

func (r *InMemoryRepository) CompareAndSwap(ctx context.Context, prev, next *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[prev.ID]
	if !ok {
		return db.ErrNotFound
	}
	if cur.Status != prev.Status || cur.Version != prev.Version {
		return db.ErrConflict
	}
	cpy := *next
	r.data[prev.ID] = &cpy
	return nil
}

func (r *InMemoryRepository) NextActionable(ctx context.Context) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *Transaction
	for _, t := range r.data {
		if !t.Actionable() {
			continue
		}
		if best == nil || olderThan(t, best) {
			best = t
		}
	}
	if best == nil {
		return nil, db.ErrNotFound
	}
	cpy := *best
	return &cpy, nil
}

func (r *InMemoryRepository) ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return collectStale(r.data, status, before, limit), nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error { return nil }

func olderThan(a, b *Transaction) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func collectStale(data map[string]*Transaction, status Status, before time.Time, limit int) []*Transaction {
	var out []*Transaction
	for _, t := range data {
		if t.Status == status && t.UpdatedAt.Before(before) {
			cpy := *t
			out = append(out, &cpy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

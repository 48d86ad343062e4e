package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"coinmachine/kit/db"

	"github.com/boltdb/bolt"
)

var (
	bucketTransactions = []byte("transactions")
	// bucketActionable indexes captured/dispensing rows by creation time so
	// NextActionable is a single cursor seek.
	bucketActionable = []byte("actionable")
	// bucketByStatus indexes every row by status then last update, so
	// ListStale seeks one status prefix instead of decoding the whole store.
	bucketByStatus = []byte("by_status")
)

type boltRecord struct {
	ID                string    `json:"txnid"`
	Amount            int64     `json:"amount"`
	Status            Status    `json:"status"`
	Dispensed         bool      `json:"dispensed"`
	DispensedCount    int64     `json:"dispensed_count"`
	LockedBy          string    `json:"locked_by"`
	Provider          string    `json:"provider"`
	ProviderReference string    `json:"provider_reference"`
	ProviderEventType string    `json:"provider_event_type"`
	Reason            string    `json:"reason"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BoltRepository keeps transactions in a single bolt file. Each conditional
// update runs inside one bolt write transaction, which bolt serializes.
type BoltRepository struct {
	db *bolt.DB
}

func NewBoltRepository(path string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("layer=repo component=transaction repo=BoltRepository method=New path=%s err=%v", path, err)
		return nil, err
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Printf("layer=repo component=transaction repo=BoltRepository method=New path=%s err=%v", path, err)
		return nil, errors.Join(db.ErrUnavailable, err)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTransactions); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketActionable); err != nil {
			return err
		}
		if tx.Bucket(bucketByStatus) != nil {
			return nil
		}
		if _, err := tx.CreateBucket(bucketByStatus); err != nil {
			return err
		}
		return reindexByStatus(tx)
	})
	if err != nil {
		_ = bdb.Close()
		log.Printf("layer=repo component=transaction repo=BoltRepository method=New path=%s err=%v", path, err)
		return nil, errors.Join(db.ErrInternal, err)
	}
	return &BoltRepository{db: bdb}, nil
}

func (r *BoltRepository) Close() error {
	return r.db.Close()
}

func (r *BoltRepository) Create(ctx context.Context, t *Transaction) (bool, error) {
	created := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		if b.Get([]byte(t.ID)) != nil {
			return nil
		}
		if err := putRecord(tx, t); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		log.Printf("layer=repo component=transaction repo=BoltRepository method=Create txnid=%s err=%v", t.ID, err)
		return false, errors.Join(db.ErrInternal, err)
	}
	return created, nil
}

func (r *BoltRepository) Get(ctx context.Context, id string) (*Transaction, error) {
	var t *Transaction
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		t, err = getRecord(tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		log.Printf("layer=repo component=transaction repo=BoltRepository method=Get txnid=%s err=%v", id, err)
		return nil, errors.Join(db.ErrInternal, err)
	}
	return t, nil
}

func (r *BoltRepository) CompareAndSwap(ctx context.Context, prev, next *Transaction) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		cur, err := getRecord(tx, prev.ID)
		if err != nil {
			return err
		}
		if cur.Status != prev.Status || cur.Version != prev.Version {
			return db.ErrConflict
		}
		if cur.Actionable() {
			if err := tx.Bucket(bucketActionable).Delete(actionableKey(cur)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketByStatus).Delete(statusKey(cur.Status, cur.UpdatedAt, cur.ID)); err != nil {
			return err
		}
		return putRecord(tx, next)
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrConflict) {
			return err
		}
		log.Printf("layer=repo component=transaction repo=BoltRepository method=CompareAndSwap txnid=%s err=%v", prev.ID, err)
		return errors.Join(db.ErrInternal, err)
	}
	return nil
}

func (r *BoltRepository) NextActionable(ctx context.Context) (*Transaction, error) {
	var t *Transaction
	err := r.db.View(func(tx *bolt.Tx) error {
		_, id := tx.Bucket(bucketActionable).Cursor().First()
		if id == nil {
			return db.ErrNotFound
		}
		var err error
		t, err = getRecord(tx, string(id))
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		log.Printf("layer=repo component=transaction repo=BoltRepository method=NextActionable err=%v", err)
		return nil, errors.Join(db.ErrInternal, err)
	}
	return t, nil
}

// ListStale returns rows in status whose last update is before before,
// least recently updated first.
func (r *BoltRepository) ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Transaction, error) {
	var out []*Transaction
	err := r.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(string(status) + "/")
		upper := statusKey(status, before, "")
		c := tx.Bucket(bucketByStatus).Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix) && bytes.Compare(k, upper) < 0; k, id = c.Next() {
			t, err := getRecord(tx, string(id))
			if err != nil {
				return err
			}
			out = append(out, t)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("layer=repo component=transaction repo=BoltRepository method=ListStale status=%s err=%v", status, err)
		return nil, errors.Join(db.ErrInternal, err)
	}
	return out, nil
}

func (r *BoltRepository) Ping(ctx context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketTransactions) == nil {
			return errors.Join(db.ErrUnavailable, fmt.Errorf("bucket %s missing", bucketTransactions))
		}
		return nil
	})
}

func getRecord(tx *bolt.Tx, id string) (*Transaction, error) {
	v := tx.Bucket(bucketTransactions).Get([]byte(id))
	if v == nil {
		return nil, db.ErrNotFound
	}
	return decodeRecord(v)
}

func putRecord(tx *bolt.Tx, t *Transaction) error {
	b, err := json.Marshal(boltRecord(*t))
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketTransactions).Put([]byte(t.ID), b); err != nil {
		return err
	}
	if err := tx.Bucket(bucketByStatus).Put(statusKey(t.Status, t.UpdatedAt, t.ID), []byte(t.ID)); err != nil {
		return err
	}
	if t.Actionable() {
		return tx.Bucket(bucketActionable).Put(actionableKey(t), []byte(t.ID))
	}
	return nil
}

func decodeRecord(v []byte) (*Transaction, error) {
	var rec boltRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, err
	}
	t := Transaction(rec)
	return &t, nil
}

func actionableKey(t *Transaction) []byte {
	return []byte(fmt.Sprintf("%020d/%s", t.CreatedAt.UnixNano(), t.ID))
}

// statusKey sorts by status, then update time. An empty id gives the
// exclusive upper bound for every row of status updated before at.
func statusKey(status Status, at time.Time, id string) []byte {
	var nanos int64
	if at.After(time.Unix(0, 0)) {
		nanos = at.UnixNano()
	}
	return []byte(fmt.Sprintf("%s/%020d/%s", status, nanos, id))
}

func reindexByStatus(tx *bolt.Tx) error {
	idx := tx.Bucket(bucketByStatus)
	return tx.Bucket(bucketTransactions).ForEach(func(k, v []byte) error {
		t, err := decodeRecord(v)
		if err != nil {
			return err
		}
		return idx.Put(statusKey(t.Status, t.UpdatedAt, t.ID), []byte(t.ID))
	})
}

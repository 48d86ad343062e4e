package transaction

import (
	"context"
	"fmt"
	"log"

	"coinmachine/kit/db"
)

const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// OpenRepository builds the repository for driver. The returned close func is
// never nil.
func OpenRepository(ctx context.Context, driver, boltPath, dsn string) (RepositoryContract, func() error, error) {
	noop := func() error { return nil }
	switch driver {
	case DriverMemory:
		return NewInMemoryRepository(), noop, nil
	case DriverBolt:
		r, err := NewBoltRepository(boltPath)
		if err != nil {
			log.Printf("layer=repository component=transaction method=OpenRepository driver=%s err=%v", driver, err)
			return nil, noop, err
		}
		return r, r.Close, nil
	case DriverPostgres:
		client, err := db.OpenPostgres(ctx, dsn)
		if err != nil {
			log.Printf("layer=repository component=transaction method=OpenRepository driver=%s err=%v", driver, err)
			return nil, noop, err
		}
		r := NewSQLRepository(client)
		if err := r.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return r, client.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: unknown store driver %q", db.ErrInvalid, driver)
}

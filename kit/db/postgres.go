package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log"
	"net"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
)

// PostgresClient implements Client on database/sql with the pgx driver.
// Driver errors are translated into this package's sentinel errors.
type PostgresClient struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresClient, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Printf("layer=client component=db method=OpenPostgres err=%v", err)
		return nil, translate(err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Printf("layer=client component=db method=OpenPostgres err=%v", err)
		_ = sqlDB.Close()
		return nil, translate(err)
	}
	return &PostgresClient{db: sqlDB}, nil
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return &pgRow{row: c.db.QueryRowContext(ctx, query, args...)}, nil
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return &pgRows{rows: rows}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return translate(c.db.PingContext(ctx))
}

func (c *PostgresClient) Close() error {
	return c.db.Close()
}

type pgRow struct {
	row *sql.Row
}

func (r *pgRow) Scan(dest ...any) error {
	return translate(r.row.Scan(dest...))
}

type pgRows struct {
	rows *sql.Rows
}

func (r *pgRows) Next() bool             { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return translate(r.rows.Scan(dest...)) }
func (r *pgRows) Err() error             { return translate(r.rows.Err()) }
func (r *pgRows) Close() error           { return translate(r.rows.Close()) }

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return errors.Join(ErrConflict, err)
		case "23502", "23514", "22P02":
			return errors.Join(ErrInvalid, err)
		case "53300", "57P01", "57P02", "57P03":
			return errors.Join(ErrUnavailable, err)
		}
		return errors.Join(ErrInternal, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return errors.Join(ErrUnavailable, err)
	}
	return errors.Join(ErrInternal, err)
}

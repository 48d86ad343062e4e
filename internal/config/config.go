package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	StoreMemory   = "memory"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"

	GatewayCashfree = "cashfree"
	GatewayFake     = "fake"
)

type Config struct {
	Name string
	Port string

	StoreDriver string
	BoltPath    string
	DatabaseURL string
	RedisAddr   string
	OutDir      string

	PaymentGateway        string
	CashfreeBaseURL       string
	CashfreeClientID      string
	CashfreeClientSecret  string
	CashfreeWebhookSecret string
	CashfreeNotifyURL     string

	AmountMin int64
	AmountMax int64

	DispenseStaleAfter time.Duration
	ReclaimInterval    time.Duration
}

// Load reads the environment through os.Getenv.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

func LoadFrom(getenv func(string) string) (Config, error) {
	str := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	outDir := str("OUT_DIR", "./out")

	cfg := Config{
		Name:                  str("CONSUMER_NAME", "consumers"),
		Port:                  str("PORT", "8080"),
		StoreDriver:           str("STORE_DRIVER", StoreBolt),
		BoltPath:              str("BOLT_PATH", filepath.Join(outDir, "transactions.db")),
		DatabaseURL:           getenv("DATABASE_URL"),
		RedisAddr:             getenv("REDIS_ADDR"),
		OutDir:                outDir,
		PaymentGateway:        str("PAYMENT_GATEWAY", GatewayCashfree),
		CashfreeBaseURL:       str("CASHFREE_BASE_URL", "https://sandbox.cashfree.com"),
		CashfreeClientID:      getenv("CASHFREE_CLIENT_ID"),
		CashfreeClientSecret:  getenv("CASHFREE_CLIENT_SECRET"),
		CashfreeWebhookSecret: getenv("CASHFREE_WEBHOOK_SECRET"),
		CashfreeNotifyURL:     getenv("CASHFREE_NOTIFY_URL"),
	}

	var errs []error
	intVar := func(key string, def int64) int64 {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, raw))
			return def
		}
		return n
	}
	durVar := func(key string, def time.Duration) time.Duration {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%q is not a positive duration", ErrInvalid, key, raw))
			return def
		}
		return d
	}

	cfg.AmountMin = intVar("AMOUNT_MIN", 10)
	cfg.AmountMax = intVar("AMOUNT_MAX", 101)
	cfg.DispenseStaleAfter = durVar("DISPENSE_STALE_AFTER", 15*time.Minute)
	cfg.ReclaimInterval = durVar("RECLAIM_INTERVAL", time.Minute)

	if cfg.AmountMin <= 0 || cfg.AmountMin > cfg.AmountMax {
		errs = append(errs, fmt.Errorf("%w: amount range %d-%d", ErrInvalid, cfg.AmountMin, cfg.AmountMax))
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreBolt:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%w: STORE_DRIVER=postgres needs DATABASE_URL", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalid, cfg.StoreDriver))
	}
	switch cfg.PaymentGateway {
	case GatewayCashfree, GatewayFake:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown PAYMENT_GATEWAY %q", ErrInvalid, cfg.PaymentGateway))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// RequireSharedStore rejects drivers whose state lives inside one process or
// behind a single-writer file lock; a second binary cannot see it.
func (c Config) RequireSharedStore() error {
	if c.StoreDriver != StorePostgres {
		return fmt.Errorf("%w: STORE_DRIVER=%q is not shared between processes, use %q", ErrInvalid, c.StoreDriver, StorePostgres)
	}
	return nil
}

func (c Config) Addr() string { return ":" + c.Port }

func (c Config) EventLogPath() string { return filepath.Join(c.OutDir, "events.jsonl") }

func (c Config) AuditLogPath() string { return filepath.Join(c.OutDir, "audit.jsonl") }

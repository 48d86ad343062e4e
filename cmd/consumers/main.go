package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	consumerhandlers "coinmachine/cmd/consumers/handlers"
	"coinmachine/internal/audit"
	"coinmachine/internal/config"
	"coinmachine/internal/events"
	"coinmachine/internal/notification"
	"coinmachine/internal/recovery"
	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
	"coinmachine/kit/db"
	"coinmachine/kit/observability"
)

// The consumers binary runs the stale-dispense sweep outside the web process.
// It refuses to start unless STORE_DRIVER=postgres.
func main() {
	logger := observability.NewLogger()
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireSharedStore()
	}
	if err != nil {
		logger.Error("config error", "error", err.Error())
		os.Exit(1)
	}
	logger = logger.With("consumer", cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsKit := observability.NewMetrics()
	bus := broker.New()
	defer bus.Close()
	store := db.New()

	repo, closeRepo, err := transaction.OpenRepository(ctx, cfg.StoreDriver, cfg.BoltPath, cfg.DatabaseURL)
	if err != nil {
		logger.Error("transaction store init error", "driver", cfg.StoreDriver, "error", err.Error())
		return
	}
	defer func() { _ = closeRepo() }()

	auditSvc, err := audit.NewServiceWithFile(logger, filepath.Join(cfg.OutDir, cfg.Name+"-audit.jsonl"))
	if err != nil {
		logger.Error("audit init error", "error", err.Error())
		return
	}
	defer func() { _ = auditSvc.Close() }()

	txnSvc := transaction.NewService(bus, store, repo, logger, transaction.AmountPolicy{Min: cfg.AmountMin, Max: cfg.AmountMax})
	recoverySvc := recovery.NewService(txnSvc, logger, cfg.DispenseStaleAfter)
	notificationSvc := notification.NewService(logger)

	auditHandler := consumerhandlers.NewAuditEvent(auditSvc)
	metricsHandler := consumerhandlers.NewMetricsEvent(metricsKit)
	notificationHandler := consumerhandlers.NewNotificationEvent(notificationSvc)

	bus.SubscribeAll(auditHandler.HandleAny, (events.TransactionTransitioned{}).Name(), (events.TransactionReclaimed{}).Name())
	bus.SubscribeAll(metricsHandler.HandleAny, (events.TransactionReclaimed{}).Name())
	bus.Subscribe((events.TransactionReclaimed{}).Name(), notificationHandler.HandleReclaimed)

	logger.Info("consumers started", "stale_after", cfg.DispenseStaleAfter.String(), "interval", cfg.ReclaimInterval.String())
	if n, err := recoverySvc.Sweep(ctx); err != nil {
		logger.Error("initial sweep error", "error", err.Error())
	} else if n > 0 {
		logger.Info("initial sweep", "reclaimed", n)
	}
	recoverySvc.Run(ctx, cfg.ReclaimInterval)
	logger.Info("consumers stopped", "reclaimed", metricsKit.TransactionsReclaimed.Load(), "dead_letters", len(recoverySvc.DeadLetters()))
}

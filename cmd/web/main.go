package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	consumerhandlers "coinmachine/cmd/consumers/handlers"
	"coinmachine/cmd/web/handlers"
	"coinmachine/cmd/web/validator"
	"coinmachine/internal/audit"
	"coinmachine/internal/config"
	"coinmachine/internal/events"
	"coinmachine/internal/health"
	"coinmachine/internal/metrics"
	"coinmachine/internal/notification"
	"coinmachine/internal/order"
	"coinmachine/internal/readmodels"
	"coinmachine/internal/recovery"
	"coinmachine/internal/transaction"
	"coinmachine/internal/webhook"
	"coinmachine/kit/broker"
	"coinmachine/kit/cache"
	"coinmachine/kit/db"
	"coinmachine/kit/external_payment_gateway"
	kitmiddleware "coinmachine/kit/middleware"
	"coinmachine/kit/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := observability.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsKit := observability.NewMetrics()
	bus := broker.New()
	defer bus.Close()
	store, err := db.NewWithFile(cfg.EventLogPath())
	if err != nil {
		logger.Error("event store init error", "error", err.Error())
		return
	}
	defer func() { _ = store.Close() }()

	auditSvc, err := audit.NewServiceWithFile(logger, cfg.AuditLogPath())
	if err != nil {
		logger.Error("audit init error", "error", err.Error())
		return
	}
	defer func() { _ = auditSvc.Close() }()

	repo, closeRepo, err := transaction.OpenRepository(ctx, cfg.StoreDriver, cfg.BoltPath, cfg.DatabaseURL)
	if err != nil {
		logger.Error("transaction store init error", "driver", cfg.StoreDriver, "error", err.Error())
		return
	}
	defer func() { _ = closeRepo() }()

	var deliveries cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, "coinmachine:")
		defer func() { _ = rc.Close() }()
		deliveries = rc
	}

	gateway := external_payment_gateway.NewCircuitBreakerGateway(
		external_payment_gateway.NewRetryGateway(newProviderGateway(cfg), external_payment_gateway.RetryConfig{
			Attempts:    3,
			CallTimeout: 5 * time.Second,
			Backoff:     200 * time.Millisecond,
		}),
		external_payment_gateway.CircuitBreakerConfig{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			OpenTimeout:      30 * time.Second,
			OnStateChange: func(from, to external_payment_gateway.BreakerState) {
				logger.Warn("payment gateway circuit changed", "from", from, "to", to)
			},
		},
	)

	policy := transaction.AmountPolicy{Min: cfg.AmountMin, Max: cfg.AmountMax}
	txnSvc := transaction.NewService(bus, store, repo, logger, policy)
	orderSvc := order.NewService(txnSvc, gateway, cfg.PaymentGateway)
	ingestor := webhook.NewIngestor(webhook.NewVerifier(cfg.CashfreeWebhookSecret), txnSvc, deliveries, bus, metricsKit, logger)
	recoverySvc := recovery.NewService(txnSvc, logger, cfg.DispenseStaleAfter)
	notificationSvc := notification.NewService(logger)

	projector := readmodels.NewProjector()
	if err := projector.Replay(ctx, store); err != nil {
		logger.Error("read model replay error", "error", err.Error())
		return
	}

	checks := map[string]health.CheckFunc{
		"store":   txnSvc.Ping,
		"gateway": gateway.Healthy,
	}
	if rc, ok := deliveries.(*cache.Redis); ok {
		checks["cache"] = rc.Ping
	}
	healthSvc := health.NewService(2*time.Second, checks)

	auditHandler := consumerhandlers.NewAuditEvent(auditSvc)
	metricsHandler := consumerhandlers.NewMetricsEvent(metricsKit)
	notificationHandler := consumerhandlers.NewNotificationEvent(notificationSvc)
	recoveryHandler := consumerhandlers.NewRecoveryEvent(logger, recoverySvc, txnSvc)

	transactionEvents := []string{
		(events.TransactionCreated{}).Name(),
		(events.TransactionTransitioned{}).Name(),
		(events.TransactionReclaimed{}).Name(),
		(events.AttentionRequired{}).Name(),
		(events.WebhookIgnored{}).Name(),
	}
	bus.SubscribeAll(auditHandler.HandleAny, transactionEvents...)
	bus.SubscribeAll(metricsHandler.HandleAny, transactionEvents...)
	bus.SubscribeAll(projector.Apply, (events.TransactionCreated{}).Name(), (events.TransactionTransitioned{}).Name())
	bus.Subscribe((events.TransactionTransitioned{}).Name(), notificationHandler.HandleTransitioned)
	bus.Subscribe((events.TransactionReclaimed{}).Name(), notificationHandler.HandleReclaimed)
	bus.Subscribe((events.AttentionRequired{}).Name(), notificationHandler.HandleAttentionRequired)
	bus.Subscribe((events.AttentionRequired{}).Name(), recoveryHandler.HandleAttentionRequired)

	go recoverySvc.Run(ctx, cfg.ReclaimInterval)

	jsonV := validator.NewJSON()
	healthH := handlers.NewHealth(healthSvc)
	ordersH := handlers.NewOrders(jsonV, orderSvc, healthSvc)
	webhookH := handlers.NewWebhook(ingestor, bus)
	dispenseH := handlers.NewDispense(jsonV, txnSvc, projector)
	metricsH := handlers.NewMetrics(metrics.NewService(metricsKit), notificationSvc, recoverySvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", healthH.Banner)
	r.Get("/healthz", healthH.Handler)
	r.Get("/metrics", metricsH.Handler)
	r.Get("/operator", metricsH.Operator)
	r.With(kitmiddleware.Idempotency(deliveries)).Post("/create-order", ordersH.Create)
	r.Post("/cashfree-webhook", webhookH.Receive)
	r.Get("/latest-payment", dispenseH.LatestPayment)
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/next", dispenseH.Next)
		r.Get("/{id}", dispenseH.Get)
		r.Get("/{id}/history", dispenseH.History)
		r.Post("/{id}/lock", dispenseH.Lock)
		r.Post("/{id}/progress", dispenseH.Progress)
		r.Post("/{id}/complete", dispenseH.Complete)
		r.Post("/{id}/fail", dispenseH.Fail)
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 2 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web server started", "addr", srv.Addr, "store", cfg.StoreDriver, "gateway", cfg.PaymentGateway, "amounts", policy.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("web server error", "error", err.Error())
	}
	logger.Info("web server stopped")
}

func newProviderGateway(cfg config.Config) external_payment_gateway.Gateway {
	if cfg.PaymentGateway == config.GatewayFake {
		return external_payment_gateway.NewFakeGateway("http://localhost" + cfg.Addr())
	}
	return external_payment_gateway.NewCashfreeGateway(external_payment_gateway.CashfreeConfig{
		BaseURL:       cfg.CashfreeBaseURL,
		ClientID:      cfg.CashfreeClientID,
		ClientSecret:  cfg.CashfreeClientSecret,
		NotifyURL:     cfg.CashfreeNotifyURL,
		CustomerID:    "coin_machine",
		CustomerPhone: "9999999999",
		Timeout:       10 * time.Second,
	})
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/farmfresh-backend/api/controllers"
	"github.com/angelmondragon/farmfresh-backend/api/routes"
	"github.com/angelmondragon/farmfresh-backend/internal/cart"
	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	products "github.com/angelmondragon/farmfresh-backend/internal/products"
	stripewebhook "github.com/angelmondragon/farmfresh-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/farmfresh-backend/pkg/config"
	"github.com/angelmondragon/farmfresh-backend/pkg/db"
	"github.com/angelmondragon/farmfresh-backend/pkg/instance"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/angelmondragon/farmfresh-backend/pkg/migrate"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/angelmondragon/farmfresh-backend/pkg/stripe"
)

const (
	webhookDedupTTL = 7 * 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	switch {
	case errors.Is(err, stripe.ErrNotConfigured):
		logg.Warn(context.Background(), "stripe not configured, checkout and webhooks disabled")
		stripeClient = nil
	case err != nil:
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	serverMetrics := metrics.NewServerMetrics(registry, "api")

	deliveryFee, err := cfg.Checkout.Fee()
	if err != nil {
		logg.Error(context.Background(), "invalid delivery fee", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productService, err := products.NewService(products.ServiceParams{
		Repository: products.NewRepository(dbClient.DB()),
		DB:         dbClient,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Store:       cartStore,
		DeliveryFee: deliveryFee,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	var (
		initiator *checkout.Initiator
		verifier  orders.PaymentVerifier
	)
	if stripeClient != nil {
		initiator, err = checkout.NewInitiator(checkout.InitiatorParams{
			Provider:           checkout.NewStripeProvider(),
			Carts:              cartService,
			Currency:           cfg.Checkout.Currency,
			PaymentMethodTypes: cfg.Checkout.PaymentMethodTypes,
			DefaultOrigin:      cfg.Checkout.DefaultOrigin,
			Metrics:            checkoutMetrics,
			Logger:             logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create checkout initiator", err)
			os.Exit(1)
		}
		verifier = initiator
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ledger, err := orders.NewLedger(redisClient, cfg.Reconcile.ClaimTTL, cfg.Reconcile.LedgerTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile ledger", err)
		os.Exit(1)
	}

	requested := cfg.Reconcile.VerifyPaymentRequested(verifier != nil)
	verifyPayment := requested && verifier != nil
	if requested && verifier == nil {
		logg.Warn(context.Background(), "payment verification requested without stripe, skipping verification")
	}
	reconciler, err := orders.NewReconciler(orders.ReconcilerParams{
		DB:            dbClient,
		Repository:    ordersRepo,
		Ledger:        ledger,
		Carts:         cartService,
		Outbox:        outboxService,
		Verifier:      verifier,
		DeliveryFee:   deliveryFee,
		Transactional: cfg.Reconcile.Transactional,
		VerifyPayment: verifyPayment,
		Metrics:       checkoutMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reconciler: reconciler,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	dedup, err := idempotency.NewManager(redisClient, webhookDedupTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(dedup, stripewebhook.Consumer)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("api"),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Redis:                redisClient,
			Gatherer:             registry,
			ServerMetrics:        serverMetrics,
			Products:             productService,
			Carts:                cartService,
			Orders:               ordersService,
			Checkout:             initiator,
			Reconciler:           reconciler,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookService,
			StripeWebhookGuard:   webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

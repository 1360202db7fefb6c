package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mercata/mercata-backend/api/routes"
	checkoutsvc "github.com/mercata/mercata-backend/internal/checkout"
	"github.com/mercata/mercata-backend/internal/inventory"
	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/internal/payments"
	"github.com/mercata/mercata-backend/internal/payouts"
	"github.com/mercata/mercata-backend/internal/refunds"
	"github.com/mercata/mercata-backend/internal/stores"
	"github.com/mercata/mercata-backend/pkg/config"
	"github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/migrate"
	"github.com/mercata/mercata-backend/pkg/outbox"
	"github.com/mercata/mercata-backend/pkg/redis"
	"github.com/mercata/mercata-backend/pkg/stripe"
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
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	paymentGateway, err := stripe.NewGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	storeService, err := stores.NewService(stores.NewRepository(dbClient.DB()), paymentGateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, outboxService, logg, cfg.Payout.ClearingDelay)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())

	checkoutService, err := checkoutsvc.NewService(dbClient, orderRepo, storeService, inventoryService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentRepo := payments.NewRepository(dbClient.DB())
	paymentService, err := payments.NewService(dbClient, paymentRepo, orderRepo, storeService, ledgerService, paymentGateway, outboxService, logg, "stripe", cfg.Payout.PlatformFeeBPS)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(dbClient, paymentRepo, orderRepo, ledgerService, paymentGateway, inventoryService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	payoutRepo := payouts.NewRepository(dbClient.DB())
	payoutExecutor, err := payouts.NewExecutor(dbClient, payoutRepo, storeService, ledgerService, paymentGateway, outboxService, logg, cfg.Payout, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create payout executor", err)
		os.Exit(1)
	}
	payoutSettings, err := payouts.NewSettingsService(payoutRepo, storeService)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout settings service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Stores:   storeService,
			Checkout: checkoutService,
			Payments: paymentService,
			Refunds:  refundService,
			Ledger:   ledgerService,
			Payouts:  payoutExecutor,
			Settings: payoutSettings,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

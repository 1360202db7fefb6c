package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercata/mercata-backend/api/controllers"
	"github.com/mercata/mercata-backend/api/middleware"
	checkoutsvc "github.com/mercata/mercata-backend/internal/checkout"
	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/payments"
	"github.com/mercata/mercata-backend/internal/payouts"
	"github.com/mercata/mercata-backend/internal/refunds"
	"github.com/mercata/mercata-backend/internal/stores"
	"github.com/mercata/mercata-backend/pkg/config"
	"github.com/mercata/mercata-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	Stores   stores.Service
	Checkout checkoutsvc.Service
	Payments payments.Service
	Refunds  refunds.Service
	Ledger   ledger.Service
	Payouts  payouts.Executor
	Settings payouts.SettingsService
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, p.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(p.Checkout, p.Logger))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/payments", controllers.RecordPayment(p.Payments, p.Logger))
			r.Post("/refunds", controllers.ProcessRefund(p.Refunds, p.Logger))
		})

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Get("/", controllers.GetStore(p.Stores, p.Logger))
			r.Post("/payment-account", controllers.CreateConnectedAccount(p.Stores, p.Logger))
			r.Get("/balance", controllers.StoreBalance(p.Ledger, p.Logger))
			r.Post("/payouts", controllers.RequestPayout(p.Payouts, p.Logger))
			r.Route("/payout-settings", func(r chi.Router) {
				r.Get("/", controllers.GetPayoutSettings(p.Settings, p.Logger))
				r.Put("/", controllers.ConfigurePayoutSettings(p.Settings, p.Logger))
			})
		})
	})

	return r
}

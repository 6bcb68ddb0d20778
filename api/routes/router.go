package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memowindow/memowindow-backend/api/controllers"
	webhookcontrollers "github.com/memowindow/memowindow-backend/api/controllers/webhooks"
	"github.com/memowindow/memowindow-backend/api/middleware"
	"github.com/memowindow/memowindow-backend/internal/orders"
	"github.com/memowindow/memowindow-backend/internal/products"
	"github.com/memowindow/memowindow-backend/internal/subscriptions"
	stripewebhook "github.com/memowindow/memowindow-backend/internal/webhooks/stripe"
	"github.com/memowindow/memowindow-backend/pkg/config"
	"github.com/memowindow/memowindow-backend/pkg/logger"
	"github.com/memowindow/memowindow-backend/pkg/metrics"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	HealthChecks  map[string]func() error
	HTTPMetrics   *metrics.HTTPMetrics
	Orders        orders.Service
	Subscriptions subscriptions.Service
	Products      products.Repository
	StripeWebhook *stripewebhook.Service
	StripeGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(params.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.HealthChecks))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.StripeWebhook, cfg.Stripe.WebhookSecret, params.StripeGuard, logg))
		r.Post("/fulfillment", webhookcontrollers.FulfillmentWebhook(params.Orders, cfg.Fulfillment.WebhookSecret, logg))
	})

	r.Get("/api/v1/products", controllers.ListProducts(params.Products, logg))

	r.Route("/api/v1/packages", func(r chi.Router) {
		r.Get("/", controllers.ListPackages(params.Subscriptions, logg))
		r.Get("/{slug}", controllers.PackageBySlug(params.Subscriptions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(params.Orders, logg))
			r.Post("/", controllers.CreateOrder(params.Orders, logg))
			r.Delete("/{orderID}", controllers.CancelOrder(params.Orders, logg))
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", controllers.CurrentSubscription(params.Subscriptions, logg))
			r.Get("/limits", controllers.UserLimits(params.Subscriptions, logg))
			r.Post("/", controllers.ChangeSubscription(params.Subscriptions, logg))
			r.Post("/cancel", controllers.CancelSubscription(params.Subscriptions, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Post("/orders/{orderID}/reconcile", controllers.ReconcileOrder(params.Orders, logg))
	})

	return r
}

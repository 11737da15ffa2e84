package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/farmfresh-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/farmfresh-backend/api/controllers/cart"
	functioncontrollers "github.com/angelmondragon/farmfresh-backend/api/controllers/functions"
	ordercontrollers "github.com/angelmondragon/farmfresh-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/farmfresh-backend/api/controllers/webhooks"
	"github.com/angelmondragon/farmfresh-backend/api/middleware"
	"github.com/angelmondragon/farmfresh-backend/internal/cart"
	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	products "github.com/angelmondragon/farmfresh-backend/internal/products"
	stripewebhook "github.com/angelmondragon/farmfresh-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/farmfresh-backend/pkg/config"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/angelmondragon/farmfresh-backend/pkg/stripe"
)

// Dependencies are the services the API routes dispatch to. Nil services
// answer with INTERNAL_ERROR instead of panicking.
type Dependencies struct {
	Pingers              map[string]controllers.Pinger
	Redis                *redis.Client
	Gatherer             prometheus.Gatherer
	ServerMetrics        *metrics.ServerMetrics
	Products             products.Service
	Carts                cart.Service
	Orders               orders.Service
	Checkout             *checkout.Initiator
	Reconciler           *orders.Reconciler
	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.ServerMetrics),
	)

	var idempotencyStore redis.IdempotencyStore
	var limiter *redis.Client
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
	}
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	farmerOnly := func(next http.Handler) http.Handler { return next }
	if cfg.FeatureFlags.RequireFarmerRole {
		farmerOnly = middleware.RequireRole(logg, enums.UserRoleFarmer)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(middleware.PublicCORS())
		r.With(middleware.RateLimit(middleware.RateLimitPolicy{
			Name:   "create-checkout",
			Window: cfg.RateLimit.CheckoutWindow,
			Limit:  cfg.RateLimit.CheckoutLimit,
		}, rateLimitStore(limiter), logg)).Post("/create-checkout", functioncontrollers.CreateCheckout(checkoutStarter(deps.Checkout), logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.Checkout.AllowedOrigins))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(webhookService(deps.StripeWebhookService), webhookVerifier(deps.StripeClient), webhookGuard(deps.StripeWebhookGuard), logg))

		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(farmerOnly, idempotent).Post("/products", controllers.CreateProduct(deps.Products, logg))

			r.Get("/cart", cartcontrollers.Get(deps.Carts, logg))
			r.With(idempotent).Put("/cart", cartcontrollers.Replace(deps.Carts, logg))
			r.Delete("/cart", cartcontrollers.Clear(deps.Carts, logg))
			r.With(idempotent).Post("/cart/items", cartcontrollers.AddItem(deps.Carts, logg))
			r.Patch("/cart/items/{productId}", cartcontrollers.UpdateQuantity(deps.Carts, logg))
			r.Delete("/cart/items/{productId}", cartcontrollers.RemoveItem(deps.Carts, logg))

			r.With(idempotent).Post("/checkout", controllers.Checkout(checkoutStarter(deps.Checkout), logg))
			r.With(idempotent).Post("/checkout/reconcile", controllers.Reconcile(reconciler(deps.Reconciler), logg))

			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(farmerOnly)
				r.Get("/seller/order-items", ordercontrollers.SellerItems(deps.Orders, logg))
				r.Get("/seller/stats", ordercontrollers.SellerStats(deps.Orders, logg))
			})
		})
	})

	return r
}

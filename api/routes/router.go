package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-cart/api/controllers/cart"
	catalogcontrollers "github.com/angelmondragon/storefront-cart/api/controllers/catalog"
	ordercontrollers "github.com/angelmondragon/storefront-cart/api/controllers/orders"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-cart/internal/checkout"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

// Dependencies are the collaborators the HTTP surface needs. Checkout is optional: without a
// database the checkout and order routes answer with a dependency error.
type Dependencies struct {
	Carts    cartcontrollers.Carts
	Catalog  *catalog.Catalog
	Notices  cartcontrollers.Notices
	Checkout checkoutsvc.Service
	Checks   map[string]controllers.Pinger
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	var products cartcontrollers.Products
	if deps.Catalog != nil {
		products = deps.Catalog
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, "/health/live", "/health/ready", cfg.Metrics.Path),
		middleware.CORS(cfg.App.CORSOrigins),
		deps.Metrics.Middleware,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Checks, logg))
	})

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", catalogcontrollers.List(deps.Catalog, logg))
		r.Get("/{ref}", catalogcontrollers.Detail(deps.Catalog, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CartSession(logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(deps.Carts, logg))
			r.Delete("/", cartcontrollers.Clear(deps.Carts, logg))

			r.Post("/items", cartcontrollers.AddItem(deps.Carts, products, logg))
			r.Patch("/items/{productID}", cartcontrollers.SetQuantity(deps.Carts, logg))
			r.Delete("/items/{productID}", cartcontrollers.RemoveItem(deps.Carts, logg))

			r.Post("/coupon", cartcontrollers.ApplyCoupon(deps.Carts, logg))
			r.Delete("/coupon", cartcontrollers.RemoveCoupon(deps.Carts, logg))

			r.Get("/notification", cartcontrollers.Notification(deps.Notices, logg))
			r.Delete("/notification", cartcontrollers.DismissNotification(deps.Notices, logg))

			r.Post("/checkout", cartcontrollers.Checkout(deps.Carts, deps.Checkout, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Checkout, logg))
			r.Get("/{orderID}", ordercontrollers.Detail(deps.Checkout, logg))
		})
	})

	return r
}

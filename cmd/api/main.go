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
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/catalog"
	"github.com/angelmondragon/storefront-cart/internal/checkout"
	"github.com/angelmondragon/storefront-cart/internal/notifications"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/instance"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
	"github.com/angelmondragon/storefront-cart/pkg/migrate"
	"github.com/angelmondragon/storefront-cart/pkg/pubsub"
)

const shutdownTimeout = 15 * time.Second

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
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	checks := map[string]controllers.Pinger{}

	var dbClient *db.Client
	if cfg.DB.Enabled() {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		closers = append(closers, dbClient.Close)
		checks["database"] = dbClient

		if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
	}

	storage, closeStorage, err := openCartStorage(ctx, cfg, logg, dbClient)
	if err != nil {
		return err
	}
	closers = append(closers, closeStorage)
	checks["cart_storage"] = storage

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry, err := cart.NewRegistry(cart.RegistryParams{
		Storage:     storage,
		StateKey:    cfg.Cart.StateKey,
		Logger:      logg,
		Metrics:     metrics.NewCartMetrics(reg),
		SaveTimeout: cfg.Cart.SaveTimeout,
		MaxSessions: cfg.Cart.MaxSessions,
	})
	if err != nil {
		return err
	}

	toasts := notifications.NewToasts(cfg.Notifications.ToastTTL)
	closers = append(closers, func() error { toasts.Close(); return nil })
	registry.OnItemAdded(toasts.HandleItemAdded)

	if cfg.PubSub.Enabled {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		closers = append(closers, psClient.Close)
		checks["pubsub"] = psClient

		publisher := psClient.CartEventsPublisher()
		closers = append(closers, func() error { publisher.Stop(); return nil })

		sink, err := notifications.NewPubSubSink(publisher, logg, 0)
		if err != nil {
			return err
		}
		closers = append(closers, func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return sink.Stop(stopCtx)
		})
		registry.OnItemAdded(sink.HandleItemAdded)
	}

	products, err := catalog.Load(cfg.App.CatalogPath)
	if err != nil {
		return err
	}

	var checkoutSvc checkout.Service
	if dbClient != nil {
		repo, err := checkout.NewRepository(dbClient.DB())
		if err != nil {
			return err
		}
		if checkoutSvc, err = checkout.NewService(repo, logg); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "no database configured; checkout is disabled")
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_storage": cfg.Cart.Storage,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Carts:    registry,
			Catalog:  products,
			Notices:  toasts,
			Checkout: checkoutSvc,
			Checks:   checks,
			Metrics:  metrics.NewHTTPMetrics(reg),
			Gatherer: reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

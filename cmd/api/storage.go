package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/cartstore"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

type pingStorage interface {
	cart.Storage
	Ping(ctx context.Context) error
}

// openCartStorage builds the backend selected by STOREFRONT_CART_STORAGE. The returned close
// func releases connections the storage owns; the SQL backend shares the orders database.
func openCartStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (pingStorage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cart.Storage {
	case config.CartStorageMemory:
		logg.Warn(ctx, "cart storage is in-memory; carts do not survive restarts")
		return cartstore.NewMemory(), noop, nil
	case config.CartStorageRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		store, err := cartstore.NewRedis(client, cfg.Cart.StateTTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	case config.CartStorageSQL:
		if dbClient == nil {
			return nil, nil, fmt.Errorf("sql cart storage requires a database")
		}
		store, err := cartstore.NewSQL(dbClient.DB())
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
	return nil, nil, fmt.Errorf("unsupported cart storage %q", cfg.Cart.Storage)
}

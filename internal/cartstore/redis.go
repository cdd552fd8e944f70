package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgredis "github.com/angelmondragon/storefront-cart/pkg/redis"
)

type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Key(parts ...string) string
	Ping(ctx context.Context) error
}

// Redis stores cart records as plain values with a sliding TTL; every save extends it.
type Redis struct {
	client redisKV
	ttl    time.Duration
}

// NewRedis wraps a redis client. A zero ttl keeps records forever.
func NewRedis(client redisKV, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.GetBytes(ctx, r.client.Key(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	return payload, nil
}

func (r *Redis) Save(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, r.client.Key(key), payload, r.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

package cartstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	pkgredis "github.com/angelmondragon/storefront-cart/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// exerciseStorage runs the contract every cart.Storage must satisfy.
func exerciseStorage(t *testing.T, store cart.Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "cart:missing")
	require.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, store.Save(ctx, "cart:a", []byte(`{"items":[]}`)))
	require.NoError(t, store.Save(ctx, "cart:b", []byte(`{"items":[{"product_id":"p1"}]}`)))
	require.NoError(t, store.Save(ctx, "cart:a", []byte(`{"items":[],"discount":"0"}`)))

	got, err := store.Load(ctx, "cart:a")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[],"discount":"0"}`, string(got))

	got, err = store.Load(ctx, "cart:b")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[{"product_id":"p1"}]}`, string(got))
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	exerciseStorage(t, NewMemory())
}

func TestMemoryCopiesPayload(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	payload := []byte("abc")
	require.NoError(t, store.Save(context.Background(), "k", payload))
	payload[0] = 'x'

	got, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string][]byte
	ttls    map[string]time.Duration
	failErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	payload, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected value type %T", value)
	}
	f.values[key] = append([]byte(nil), payload...)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	payload, ok := f.values[key]
	if !ok {
		return nil, pkgredis.ErrNil
	}
	return payload, nil
}

func (f *fakeRedis) Key(parts ...string) string {
	return "sf:" + strings.Join(parts, ":")
}

func (f *fakeRedis) Ping(context.Context) error {
	return f.failErr
}

func TestRedisStorage(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	store, err := NewRedis(fake, 24*time.Hour)
	require.NoError(t, err)
	exerciseStorage(t, store)

	assert.Equal(t, 24*time.Hour, fake.ttls["sf:cart:a"])
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStorageWrapsErrors(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failErr = errors.New("connection refused")
	store, err := NewRedis(fake, 0)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "cart:a")
	require.Error(t, err)
	assert.False(t, errors.Is(err, cart.ErrNotFound))
	assert.ErrorIs(t, store.Save(context.Background(), "cart:a", []byte("{}")), fake.failErr)

	_, err = NewRedis(nil, 0)
	assert.Error(t, err)
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartState{}))
	return conn
}

func TestSQLStorage(t *testing.T) {
	t.Parallel()

	conn := newSQLiteDB(t)
	store, err := NewSQL(conn)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	exerciseStorage(t, store)

	var count int64
	require.NoError(t, conn.Model(&models.CartState{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "upsert must keep one row per key")

	_, err = NewSQL(nil)
	assert.Error(t, err)
}

func TestEngineOverSQLStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewSQL(newSQLiteDB(t))
	require.NoError(t, err)

	registry, err := cart.NewRegistry(cart.RegistryParams{Storage: store})
	require.NoError(t, err)
	engine, err := registry.Engine(ctx, "sess")
	require.NoError(t, err)

	product := cart.Product{ID: "p1", Name: "Dress", Price: mustDecimal(t, "499.99"), Stock: 5}
	require.True(t, engine.AddItem(ctx, product, cart.Variant{Color: "red", Size: "M"}, 2).OK())
	require.True(t, engine.ApplyCoupon(ctx, "women10").OK())

	fresh, err := cart.NewRegistry(cart.RegistryParams{Storage: store})
	require.NoError(t, err)
	restored, err := fresh.Engine(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, engine.State().Equal(restored.State()))
}

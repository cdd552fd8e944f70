package cartstore

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

// Memory keeps cart records in process. Records are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.store[key]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *Memory) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store[key] = append([]byte(nil), payload...)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

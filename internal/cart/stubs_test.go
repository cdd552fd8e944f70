package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type stubStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newStubStorage() *stubStorage {
	return &stubStorage{data: map[string][]byte{}}
}

func (s *stubStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	payload, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (s *stubStorage) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

func (s *stubStorage) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type recordedOp struct {
	op, outcome, reason string
}

type stubRecorder struct {
	mu           sync.Mutex
	ops          []recordedOp
	persistFails int
}

func (r *stubRecorder) ObserveOperation(op, outcome, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{op: op, outcome: outcome, reason: reason})
}

func (r *stubRecorder) ObservePersistence(_ string, _ time.Duration, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistFails++
}

var errStorageDown = errors.New("storage down")

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testProduct(id string, price string, stock int) Product {
	return Product{
		ID:     id,
		Name:   "Product " + id,
		Slug:   "product-" + id,
		Images: []string{"/img/" + id + ".jpg"},
		Price:  dec(price),
		Stock:  stock,
		Colors: []string{"red", "blue"},
		Sizes:  []string{"S", "M", "L"},
	}
}

var redM = Variant{Color: "red", Size: "M"}

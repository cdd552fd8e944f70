package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/rs/zerolog"
)

type published struct {
	data  []byte
	attrs map[string]string
}

type stubPublisher struct {
	mu    sync.Mutex
	msgs  []published
	err   error
	block chan struct{}
}

func (p *stubPublisher) Publish(_ context.Context, data []byte, attrs map[string]string) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{data: data, attrs: attrs})
	return p.err
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payload, ok := m.data[key]; ok {
		return payload, nil
	}
	return nil, cart.ErrNotFound
}

func (m *memStorage) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})
}

func TestPubSubSinkPublishesEvents(t *testing.T) {
	t.Parallel()

	pub := &stubPublisher{}
	var buf bytes.Buffer
	sink, err := NewPubSubSink(pub, testLogger(&buf), 4)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	sink.HandleItemAdded(context.Background(), itemAdded("sess-9", 2))
	if err := sink.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("expected 1 message, got %d", pub.count())
	}

	msg := pub.msgs[0]
	if msg.attrs["event_type"] != EventItemAdded || msg.attrs["session_id"] != "sess-9" {
		t.Fatalf("unexpected attributes %+v", msg.attrs)
	}
	var evt cart.ItemAdded
	if err := json.Unmarshal(msg.data, &evt); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if evt.Message != "2 items added to cart" || evt.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", evt)
	}

	sink.HandleItemAdded(context.Background(), itemAdded("sess-9", 1))
	if pub.count() != 1 {
		t.Fatal("events after stop must be ignored")
	}
}

func TestPubSubSinkLogsFailuresAndDrops(t *testing.T) {
	t.Parallel()

	pub := &stubPublisher{err: errors.New("unavailable"), block: make(chan struct{})}
	var buf bytes.Buffer
	sink, err := NewPubSubSink(pub, testLogger(&buf), 1)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	// first is picked up by the worker and blocks, second fills the buffer, third is dropped
	for i := 0; i < 3; i++ {
		sink.HandleItemAdded(context.Background(), itemAdded("s", 1))
		time.Sleep(10 * time.Millisecond)
	}
	close(pub.block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sink.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	logs := buf.String()
	if !bytes.Contains([]byte(logs), []byte("cart.item_added.publish_dropped")) {
		t.Fatalf("expected drop to be logged, got %s", logs)
	}
	if !bytes.Contains([]byte(logs), []byte("cart.item_added.publish_failed")) {
		t.Fatalf("expected publish failure to be logged, got %s", logs)
	}
	if pub.count() != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", pub.count())
	}
}

func TestNewPubSubSinkValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewPubSubSink(nil, testLogger(&bytes.Buffer{}), 1); err == nil {
		t.Fatal("expected error without publisher")
	}
	if _, err := NewPubSubSink(&stubPublisher{}, nil, 1); err == nil {
		t.Fatal("expected error without logger")
	}
}

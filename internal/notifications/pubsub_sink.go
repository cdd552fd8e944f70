package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// EventItemAdded is the event_type attribute on published cart messages.
const EventItemAdded = "cart.item_added"

const (
	defaultSinkBuffer     = 256
	defaultPublishTimeout = 10 * time.Second
)

// Publisher sends a payload to the cart events topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// PubSubSink forwards ItemAdded events to Pub/Sub from a background worker so cart calls never
// wait on the network. Events arriving while the buffer is full are dropped and logged.
type PubSubSink struct {
	publisher Publisher
	logg      *logger.Logger
	timeout   time.Duration

	events   chan cart.ItemAdded
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

// NewPubSubSink starts the publishing worker.
func NewPubSubSink(publisher Publisher, logg *logger.Logger, buffer int) (*PubSubSink, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	s := &PubSubSink{
		publisher: publisher,
		logg:      logg,
		timeout:   defaultPublishTimeout,
		events:    make(chan cart.ItemAdded, buffer),
		done:      make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// HandleItemAdded is a cart.ItemAddedHandler.
func (s *PubSubSink) HandleItemAdded(ctx context.Context, evt cart.ItemAdded) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}
	select {
	case s.events <- evt:
	default:
		logCtx := s.logg.WithFields(ctx, map[string]any{"session_id": evt.SessionID, "product_id": evt.ProductID})
		s.logg.Warn(logCtx, "cart.item_added.publish_dropped")
	}
}

func (s *PubSubSink) run() {
	defer close(s.done)
	for evt := range s.events {
		s.publish(evt)
	}
}

func (s *PubSubSink) publish(evt cart.ItemAdded) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_type": EventItemAdded,
		"session_id": evt.SessionID,
		"product_id": evt.ProductID,
	})
	data, err := json.Marshal(evt)
	if err != nil {
		s.logg.Error(logCtx, "cart.item_added.encode_failed", err)
		return
	}
	attrs := map[string]string{
		"event_type": EventItemAdded,
		"session_id": evt.SessionID,
	}
	if err := s.publisher.Publish(ctx, data, attrs); err != nil {
		s.logg.Error(logCtx, "cart.item_added.publish_failed", err)
	}
}

// Stop refuses new events, drains the buffer and waits for the worker or ctx.
func (s *PubSubSink) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.events)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

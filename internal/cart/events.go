package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// ItemAdded is emitted after AddItem changes the cart.
type ItemAdded struct {
	Show         bool      `json:"show"`
	Message      string    `json:"message"`
	SessionID    string    `json:"session_id,omitempty"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image"`
	Variant      Variant   `json:"variant"`
	Quantity     int       `json:"quantity"`
	LineQuantity int       `json:"line_quantity"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ItemAddedHandler observes ItemAdded events. Handlers must not block.
type ItemAddedHandler func(ctx context.Context, evt ItemAdded)

// AddedMessage renders the notification text for a quantity delta.
func AddedMessage(quantity int) string {
	suffix := ""
	if quantity > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("%d item%s added to cart", quantity, suffix)
}

type subscription struct {
	id      uint64
	handler ItemAddedHandler
}

// Emitter fans ItemAdded events out to subscribers.
type Emitter struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logg   *logger.Logger
}

// NewEmitter builds an emitter; logg may be nil.
func NewEmitter(logg *logger.Logger) *Emitter {
	return &Emitter{logg: logg}
}

// OnItemAdded registers a handler and returns a function that removes it.
func (e *Emitter) OnItemAdded(handler ItemAddedHandler) func() {
	if handler == nil {
		return func() {}
	}
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, handler: handler})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

func (e *Emitter) emit(ctx context.Context, evt ItemAdded) {
	e.mu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, sub := range subs {
		e.deliver(ctx, sub.handler, evt)
	}
}

func (e *Emitter) deliver(ctx context.Context, handler ItemAddedHandler, evt ItemAdded) {
	defer func() {
		if rec := recover(); rec != nil && e.logg != nil {
			logCtx := e.logg.WithFields(ctx, map[string]any{"panic": rec, "product_id": evt.ProductID})
			e.logg.Error(logCtx, "cart.item_added.handler_panic", fmt.Errorf("panic: %v", rec))
		}
	}()
	handler(ctx, evt)
}

package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

const defaultToastTTL = 5 * time.Second

// Toast is the "added to cart" banner state for one session.
type Toast struct {
	Show         bool         `json:"show"`
	Message      string       `json:"message"`
	ProductID    string       `json:"product_id,omitempty"`
	ProductName  string       `json:"product_name,omitempty"`
	ProductImage string       `json:"product_image,omitempty"`
	Variant      cart.Variant `json:"variant"`
	Quantity     int          `json:"quantity,omitempty"`
	ShownAt      time.Time    `json:"shown_at,omitempty"`
}

type toastEntry struct {
	toast Toast
	gen   uint64
	timer *time.Timer
}

// Toasts keeps the latest item-added notification per session and hides it after ttl.
type Toasts struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*toastEntry
}

// NewToasts builds the observer. A non-positive ttl falls back to five seconds.
func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = defaultToastTTL
	}
	return &Toasts{ttl: ttl, entries: make(map[string]*toastEntry)}
}

// HandleItemAdded is a cart.ItemAddedHandler. A newer event replaces the visible toast and
// restarts the hide timer.
func (t *Toasts) HandleItemAdded(_ context.Context, evt cart.ItemAdded) {
	if !evt.Show {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[evt.SessionID]
	if !ok {
		entry = &toastEntry{}
		t.entries[evt.SessionID] = entry
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.gen++
	entry.toast = Toast{
		Show:         true,
		Message:      evt.Message,
		ProductID:    evt.ProductID,
		ProductName:  evt.ProductName,
		ProductImage: evt.ProductImage,
		Variant:      evt.Variant,
		Quantity:     evt.Quantity,
		ShownAt:      evt.OccurredAt,
	}
	gen := entry.gen
	sessionID := evt.SessionID
	entry.timer = time.AfterFunc(t.ttl, func() { t.expire(sessionID, gen) })
}

func (t *Toasts) expire(sessionID string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[sessionID]
	if !ok || entry.gen != gen {
		return
	}
	delete(t.entries, sessionID)
}

// Get returns the session's toast; the zero Toast when nothing is showing.
func (t *Toasts) Get(sessionID string) Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[sessionID]; ok {
		return entry.toast
	}
	return Toast{}
}

// Hide dismisses the session's toast immediately.
func (t *Toasts) Hide(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[sessionID]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(t.entries, sessionID)
}

// Close stops all pending timers.
func (t *Toasts) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, entry := range t.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(t.entries, id)
	}
}

package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/shopspring/decimal"
)

const defaultSaveTimeout = 2 * time.Second

// ErrEmptyCart is returned by Checkout when there is nothing to hand off.
var ErrEmptyCart = errors.New("cart is empty")

// Recorder receives operation and persistence measurements.
type Recorder interface {
	ObserveOperation(op, outcome, reason string)
	ObservePersistence(action string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, string)         {}
func (nopRecorder) ObservePersistence(string, time.Duration, error) {}

// SubmitFunc receives the checkout snapshot. Returning an error keeps the cart intact.
type SubmitFunc func(ctx context.Context, snapshot Snapshot) error

// EngineParams wires an Engine's collaborators.
type EngineParams struct {
	SessionID   string
	Key         string
	Storage     Storage
	Policy      *CouponPolicy
	Emitter     *Emitter
	Logger      *logger.Logger
	Metrics     Recorder
	SaveTimeout time.Duration
	Clock       func() time.Time
}

// Engine owns one cart. Every call runs to completion under the engine lock: the store is
// mutated, totals recomputed and the record saved before the next call can observe it.
type Engine struct {
	mu    sync.Mutex
	state State

	sessionID   string
	key         string
	storage     Storage
	policy      *CouponPolicy
	emitter     *Emitter
	logg        *logger.Logger
	metrics     Recorder
	saveTimeout time.Duration
	now         func() time.Time
}

// NewEngine builds an engine and loads its persisted state. Missing or unreadable state
// yields an empty cart.
func NewEngine(ctx context.Context, params EngineParams) (*Engine, error) {
	if params.Storage == nil {
		return nil, errors.New("cart storage required")
	}
	if params.Key == "" {
		return nil, errors.New("cart state key required")
	}
	e := &Engine{
		sessionID:   params.SessionID,
		key:         params.Key,
		storage:     params.Storage,
		policy:      params.Policy,
		emitter:     params.Emitter,
		logg:        params.Logger,
		metrics:     params.Metrics,
		saveTimeout: params.SaveTimeout,
		now:         params.Clock,
	}
	if e.policy == nil {
		e.policy = DefaultCouponPolicy()
	}
	if e.emitter == nil {
		e.emitter = NewEmitter(params.Logger)
	}
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	if e.saveTimeout <= 0 {
		e.saveTimeout = defaultSaveTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.state = e.load(ctx)
	return e, nil
}

// SessionID returns the session the engine serves.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// State returns a copy of the current cart.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Snapshot returns a point-in-time copy for read-only consumers.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotOf(e.state, e.now())
}

// OnItemAdded subscribes to item-added events of this engine.
func (e *Engine) OnItemAdded(handler ItemAddedHandler) func() {
	return e.emitter.OnItemAdded(handler)
}

// AddItem adds quantity units of the product variant. An existing line is incremented;
// the combined quantity is capped at the stock captured when the line was created.
func (e *Engine) AddItem(ctx context.Context, product Product, variant Variant, quantity int) Result {
	var evt ItemAdded
	variant = product.Canonical(variant)
	res := e.mutate(ctx, "add_item", func(s *State) Result {
		switch {
		case product.ID == "" || product.UnitPrice().IsNegative():
			return rejected(ReasonInvalidProduct)
		case quantity < 1:
			return rejected(ReasonInvalidQuantity)
		case product.Stock < 1:
			return rejected(ReasonOutOfStock)
		case !product.Offers(variant):
			return rejected(ReasonInvalidVariant)
		}

		var line *LineItem
		delta := quantity
		if idx := s.indexOf(product.ID, variant); idx >= 0 {
			line = &s.Items[idx]
			delta = min(quantity, line.StockLimit-line.Quantity)
			if delta < 1 {
				return rejected(ReasonStockLimit)
			}
			line.Quantity += delta
		} else {
			delta = min(quantity, product.Stock)
			s.Items = append(s.Items, newLineItem(product, variant, delta))
			line = &s.Items[len(s.Items)-1]
		}

		evt = ItemAdded{
			Show:         true,
			Message:      AddedMessage(delta),
			SessionID:    e.sessionID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.PrimaryImage(),
			Variant:      variant,
			Quantity:     delta,
			LineQuantity: line.Quantity,
			OccurredAt:   e.now(),
		}
		if delta < quantity {
			return applied(ReasonQuantityClamped)
		}
		return applied(ReasonNone)
	})
	if res.OK() {
		e.emitter.emit(ctx, evt)
	}
	return res
}

// RemoveItem drops the matching line. Removing an absent line is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, productID string, variant Variant) Result {
	return e.mutate(ctx, "remove_item", func(s *State) Result {
		idx := s.indexOf(productID, variant)
		if idx < 0 {
			return noop(ReasonItemNotFound)
		}
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
		return applied(ReasonNone)
	})
}

// SetQuantity replaces a line's quantity when it lies within [1, stock limit]; anything
// else leaves the cart untouched.
func (e *Engine) SetQuantity(ctx context.Context, productID string, variant Variant, quantity int) Result {
	return e.mutate(ctx, "set_quantity", func(s *State) Result {
		idx := s.indexOf(productID, variant)
		if idx < 0 {
			return noop(ReasonItemNotFound)
		}
		line := &s.Items[idx]
		if quantity < 1 || quantity > line.StockLimit {
			return rejected(ReasonInvalidQuantity)
		}
		if quantity == line.Quantity {
			return noop(ReasonNone)
		}
		line.Quantity = quantity
		return applied(ReasonNone)
	})
}

// ApplyCoupon freezes the coupon's discount against the current subtotal. Unknown codes
// leave any active discount in place.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) Result {
	return e.mutate(ctx, "apply_coupon", func(s *State) Result {
		normalized, rate, ok := e.policy.Lookup(code)
		if !ok {
			return rejected(ReasonUnknownCoupon)
		}
		s.Discount = DiscountFor(s.Subtotal(), rate)
		s.CouponCode = normalized
		return applied(ReasonNone)
	})
}

// RemoveCoupon clears the active discount.
func (e *Engine) RemoveCoupon(ctx context.Context) Result {
	return e.mutate(ctx, "remove_coupon", func(s *State) Result {
		if !s.HasCoupon() && s.Discount.IsZero() {
			return noop(ReasonNoCoupon)
		}
		s.Discount = decimal.Zero
		s.CouponCode = ""
		return applied(ReasonNone)
	})
}

// Clear empties the cart and drops any discount.
func (e *Engine) Clear(ctx context.Context) Result {
	return e.mutate(ctx, "clear", func(s *State) Result {
		*s = emptyState()
		return applied(ReasonNone)
	})
}

// Checkout hands a snapshot to submit and, once it succeeds, resets the cart.
func (e *Engine) Checkout(ctx context.Context, submit SubmitFunc) (Snapshot, error) {
	if submit == nil {
		return Snapshot{}, errors.New("checkout submit function required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := snapshotOf(e.state, e.now())
	if snap.IsEmpty() {
		e.metrics.ObserveOperation("checkout", string(StatusRejected), string(ReasonNone))
		return snap, ErrEmptyCart
	}
	if err := submit(ctx, snap); err != nil {
		e.metrics.ObserveOperation("checkout", "failed", string(ReasonNone))
		return snap, err
	}

	e.state = emptyState()
	e.persist(ctx)
	e.metrics.ObserveOperation("checkout", string(StatusApplied), string(ReasonNone))
	return snap, nil
}

func (e *Engine) mutate(ctx context.Context, op string, fn func(*State) Result) Result {
	e.mu.Lock()
	res := fn(&e.state)
	if res.OK() {
		e.state.recalculate()
		e.persist(ctx)
	}
	e.mu.Unlock()

	e.metrics.ObserveOperation(op, string(res.Status), string(res.Reason))
	if res.Rejected() && e.logg != nil {
		logCtx := e.logg.WithFields(e.logContext(ctx), map[string]any{"op": op, "reason": res.Reason})
		e.logg.Debug(logCtx, "cart.operation.rejected")
	}
	return res
}

// persist saves the current state. Failures are logged and counted; the in-memory cart stays
// authoritative. Callers hold e.mu.
func (e *Engine) persist(ctx context.Context) {
	payload, err := EncodeState(e.state)
	if err != nil {
		e.metrics.ObservePersistence("save", 0, err)
		e.logError(ctx, "cart.persist.encode_failed", err)
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.saveTimeout)
	defer cancel()

	start := time.Now()
	err = e.storage.Save(saveCtx, e.key, payload)
	e.metrics.ObservePersistence("save", time.Since(start), err)
	if err != nil {
		e.logError(ctx, "cart.persist.save_failed", err)
	}
}

func (e *Engine) load(ctx context.Context) State {
	loadCtx, cancel := context.WithTimeout(ctx, e.saveTimeout)
	defer cancel()

	start := time.Now()
	payload, err := e.storage.Load(loadCtx, e.key)
	if errors.Is(err, ErrNotFound) {
		e.metrics.ObservePersistence("load", time.Since(start), nil)
		return emptyState()
	}
	e.metrics.ObservePersistence("load", time.Since(start), err)
	if err != nil {
		e.logError(ctx, "cart.load.failed", err)
		return emptyState()
	}

	state, err := DecodeState(payload)
	if err != nil {
		if e.logg != nil {
			logCtx := e.logg.WithField(e.logContext(ctx), "error", err.Error())
			e.logg.Warn(logCtx, "cart.load.corrupt_state_discarded")
		}
		return emptyState()
	}
	return state
}

func (e *Engine) logContext(ctx context.Context) context.Context {
	return e.logg.WithFields(ctx, map[string]any{
		"session_id": e.sessionID,
		"cart_key":   e.key,
	})
}

func (e *Engine) logError(ctx context.Context, msg string, err error) {
	if e.logg == nil {
		return
	}
	e.logg.Error(e.logContext(ctx), msg, err)
}

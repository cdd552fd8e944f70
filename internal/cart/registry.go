package cart

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/angelmondragon/storefront-cart/pkg/logger"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

const (
	defaultStateKey    = "cart"
	defaultMaxSessions = 10000
)

// ErrSessionRequired is returned when a cart is requested without a session id.
var ErrSessionRequired = errors.New("cart session id required")

// RegistryParams configures the engines a Registry creates.
type RegistryParams struct {
	Storage     Storage
	StateKey    string
	Policy      *CouponPolicy
	Logger      *logger.Logger
	Metrics     Recorder
	SaveTimeout time.Duration
	Clock       func() time.Time
	// MaxSessions caps resident engines; the least recently used one is dropped first.
	// Its cart survives in storage and is reloaded on the next request.
	MaxSessions int
}

// Registry hands out one Engine per session. All engines share a single emitter so observers
// subscribe once and see events of every session.
//
// An evicted engine may still be held by an in-flight request. It stays reachable through a
// weak reference until the last holder lets go, so a session never has two live engines.
type Registry struct {
	mu      sync.Mutex
	engines *lru.Cache
	retired map[string]weak.Pointer[Engine]
	loads   singleflight.Group
	params  RegistryParams
	emitter *Emitter
}

// NewRegistry validates params and returns an empty registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Storage == nil {
		return nil, errors.New("cart storage required")
	}
	if strings.TrimSpace(params.StateKey) == "" {
		params.StateKey = defaultStateKey
	}
	if params.Policy == nil {
		params.Policy = DefaultCouponPolicy()
	}
	if params.MaxSessions <= 0 {
		params.MaxSessions = defaultMaxSessions
	}
	r := &Registry{
		retired: map[string]weak.Pointer[Engine]{},
		params:  params,
		emitter: NewEmitter(params.Logger),
	}
	engines, err := lru.NewWithEvict(params.MaxSessions, r.retire)
	if err != nil {
		return nil, err
	}
	r.engines = engines
	return r, nil
}

// Key is the storage key a session's cart lives under.
func (r *Registry) Key(sessionID string) string {
	return r.params.StateKey + ":" + sessionID
}

// OnItemAdded subscribes to item-added events across all sessions.
func (r *Registry) OnItemAdded(handler ItemAddedHandler) func() {
	return r.emitter.OnItemAdded(handler)
}

// Engine returns the session's engine, loading its persisted state on first use. Loads run
// outside the registry lock; concurrent first requests for one session share a single load.
func (r *Registry) Engine(ctx context.Context, sessionID string) (*Engine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	r.mu.Lock()
	engine := r.residentLocked(sessionID)
	r.mu.Unlock()
	if engine != nil {
		return engine, nil
	}

	loaded, err, _ := r.loads.Do(sessionID, func() (any, error) {
		r.mu.Lock()
		engine := r.residentLocked(sessionID)
		r.mu.Unlock()
		if engine != nil {
			return engine, nil
		}

		engine, err := NewEngine(context.WithoutCancel(ctx), EngineParams{
			SessionID:   sessionID,
			Key:         r.Key(sessionID),
			Storage:     r.params.Storage,
			Policy:      r.params.Policy,
			Emitter:     r.emitter,
			Logger:      r.params.Logger,
			Metrics:     r.params.Metrics,
			SaveTimeout: r.params.SaveTimeout,
			Clock:       r.params.Clock,
		})
		if err != nil {
			return nil, err
		}
		runtime.AddCleanup(engine, r.forget, retiredRef{sessionID: sessionID, ptr: weak.Make(engine)})

		r.mu.Lock()
		r.engines.Add(sessionID, engine)
		r.mu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*Engine), nil
}

// residentLocked returns the cached engine, reviving an evicted one that is still in use.
// Callers hold r.mu.
func (r *Registry) residentLocked(sessionID string) *Engine {
	if cached, ok := r.engines.Get(sessionID); ok {
		return cached.(*Engine)
	}
	ptr, ok := r.retired[sessionID]
	if !ok {
		return nil
	}
	delete(r.retired, sessionID)
	engine := ptr.Value()
	if engine != nil {
		r.engines.Add(sessionID, engine)
	}
	return engine
}

// retire is the LRU eviction hook. It runs inside engines.Add, which is only called with r.mu held.
func (r *Registry) retire(key, value any) {
	sessionID, _ := key.(string)
	engine, _ := value.(*Engine)
	if sessionID == "" || engine == nil {
		return
	}
	r.retired[sessionID] = weak.Make(engine)
}

type retiredRef struct {
	sessionID string
	ptr       weak.Pointer[Engine]
}

// forget drops the weak reference once the engine it points to has been collected.
func (r *Registry) forget(ref retiredRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired[ref.sessionID] == ref.ptr {
		delete(r.retired, ref.sessionID)
	}
}

// Retired reports how many evicted engines are still tracked by weak reference.
func (r *Registry) Retired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.retired)
}

// Len reports how many sessions are resident.
func (r *Registry) Len() int {
	return r.engines.Len()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart operation outcomes and persistence latency.
type CartMetrics struct {
	operations  *prometheus.CounterVec
	persistence *prometheus.HistogramVec
	failures    *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by outcome.",
	}, []string{"op", "outcome", "reason"})
	persistence := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_persistence_duration_seconds",
		Help:    "Latency of cart state loads and saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persistence_failures_total",
		Help: "Failed cart state loads and saves.",
	}, []string{"action"})
	reg.MustRegister(operations, persistence, failures)
	return &CartMetrics{
		operations:  operations,
		persistence: persistence,
		failures:    failures,
	}
}

// ObserveOperation counts one cart operation.
func (c *CartMetrics) ObserveOperation(op, outcome, reason string) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome), reason).Inc()
}

// ObservePersistence records a load or save and counts it as failed when err is set.
func (c *CartMetrics) ObservePersistence(action string, elapsed time.Duration, err error) {
	if c == nil || c.persistence == nil {
		return
	}
	action = normalizeLabel(action)
	c.persistence.WithLabelValues(action).Observe(elapsed.Seconds())
	if err != nil {
		c.failures.WithLabelValues(action).Inc()
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

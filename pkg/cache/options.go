package cache

import (
	"github.com/c360/drugscout/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances. Stats are
// always collected; Prometheus export is opt-in via WithMetrics.
type cacheOptions[V any] struct {
	// metricsReg, when set, exposes cache stats as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsClient labels the exported metrics with the owning client
	metricsClient string

	// evictCallback is called when items are evicted from the cache
	evictCallback EvictCallback[V]
}

// WithMetrics enables Prometheus metrics export for cache statistics,
// labeled with the owning client's name. A nil registry or empty client
// name leaves export off.
func WithMetrics[V any](registry *metric.MetricsRegistry, client string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && client != "" {
			opts.metricsReg = registry
			opts.metricsClient = client
		}
	}
}

// WithEvictionCallback sets a callback invoked with the key and value of
// every evicted entry.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// applyOptions folds functional options into the final configuration.
func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}

// buildMetrics registers cache metrics when the metrics option was given.
// Returns nil with no error when export is off.
func (o *cacheOptions[V]) buildMetrics() (*cacheMetrics, error) {
	if o.metricsReg == nil || o.metricsClient == "" {
		return nil, nil
	}
	return newCacheMetrics(o.metricsReg, o.metricsClient)
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/pkg/dateutil"
)

// Strategy selects the memory-tier implementation.
type Strategy string

const (
	// StrategyTTL is the default: an unbounded map whose entries expire
	// by TTL.
	StrategyTTL Strategy = "ttl"

	// StrategyBounded adds an LRU size cap on top of TTL expiry, for bulk
	// workloads such as prefetch runs.
	StrategyBounded Strategy = "bounded"
)

// Config contains configuration for cache creation. The same Config drives
// a standalone memory cache and the memory tier inside a Tiered cache.
type Config struct {
	// Enabled determines if caching is enabled at all.
	Enabled bool `json:"enabled"`

	// Strategy selects the memory-tier implementation. Empty means ttl.
	Strategy Strategy `json:"strategy"`

	// MaxSize is the maximum number of memory entries (bounded strategy).
	MaxSize int `json:"max_size"`

	// TTL is how long a cached response stays fresh, in both tiers.
	TTL time.Duration `json:"ttl"`

	// CleanupInterval is how often the memory tier sweeps expired entries.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// DisableDurable opts out of the durable tier. The zero value keeps
	// it on whenever a store is supplied.
	DisableDurable bool `json:"disable_durable"`
}

// DefaultConfig returns the default cache configuration: five days of
// retention with an hourly sweep, durable tier on.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Strategy:        StrategyTTL,
		MaxSize:         4096,
		TTL:             120 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Strategy {
	case StrategyTTL, "":
	case StrategyBounded:
		if c.MaxSize <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
				fmt.Sprintf("max_size must be positive for bounded cache, got %d", c.MaxSize))
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("unknown cache strategy: %s", c.Strategy))
	}

	if c.TTL <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl must be positive, got %v", c.TTL))
	}
	if c.CleanupInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("cleanup_interval must be positive, got %v", c.CleanupInterval))
	}

	return nil
}

// NewFromConfig creates a memory cache based on the provided configuration.
// Returns a noop cache if config.Enabled is false.
func NewFromConfig[V any](ctx context.Context, cfg Config, options ...Option[V]) (Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation failed")
	}

	if !cfg.Enabled {
		return NewNoop[V](), nil
	}

	return newMemoryTier[V](ctx, cfg, applyOptions(options...))
}

// newMemoryTier builds the configured memory-tier implementation. Callers
// have already validated cfg.
func newMemoryTier[V any](ctx context.Context, cfg Config, opts *cacheOptions[V]) (Cache[V], error) {
	switch cfg.Strategy {
	case StrategyBounded:
		return newBoundedCache[V](ctx, cfg.MaxSize, cfg.TTL, cfg.CleanupInterval, opts)
	default:
		return newMemoryCache[V](ctx, cfg.TTL, cfg.CleanupInterval, opts)
	}
}

// NewMemory creates a TTL memory cache. Stats are always collected; use
// WithMetrics to also export them as Prometheus metrics.
func NewMemory[V any](ctx context.Context, ttl, cleanupInterval time.Duration, options ...Option[V]) (Cache[V], error) {
	return newMemoryCache[V](ctx, ttl, cleanupInterval, applyOptions(options...))
}

// NewBounded creates a size-capped TTL memory cache.
func NewBounded[V any](
	ctx context.Context, maxSize int, ttl, cleanupInterval time.Duration, options ...Option[V],
) (Cache[V], error) {
	return newBoundedCache[V](ctx, maxSize, ttl, cleanupInterval, applyOptions(options...))
}

// NewNoop creates a cache that does nothing (always returns cache misses).
// This is what a disabled configuration produces.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

// noopCache is a cache implementation that does nothing.
type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Delete(_ string) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Clear() error {
	return nil
}

func (c *noopCache[V]) Size() int {
	return 0
}

func (c *noopCache[V]) Keys() []string {
	return nil
}

func (c *noopCache[V]) Stats() *Statistics {
	return nil
}

func (c *noopCache[V]) Close() error {
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Config so duration
// fields accept strings ("5d", "1h") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Alias avoids infinite recursion back into this method.
	type Alias Config

	aux := &struct {
		TTL             json.RawMessage `json:"ttl,omitempty"`
		CleanupInterval json.RawMessage `json:"cleanup_interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.TTL) > 0 {
		ttl, err := parseDurationField(aux.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}

	if len(aux.CleanupInterval) > 0 {
		interval, err := parseDurationField(aux.CleanupInterval, "cleanup_interval")
		if err != nil {
			return err
		}
		c.CleanupInterval = interval
	}

	return nil
}

// parseDurationField parses a JSON duration field that can be either a
// string ("5d", "12h", "30s") or an integer nanosecond count.
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := dateutil.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g. %q) or integer nanoseconds", fieldName, "5d")
	}
	return time.Duration(nsec), nil
}

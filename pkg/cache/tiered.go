package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/storage"
)

// envelope is the durable-tier record: the cached payload plus the metadata
// needed to judge freshness without consulting the writer's configuration.
type envelope struct {
	Payload  json.RawMessage `json:"payload"`
	CachedAt time.Time       `json:"cached_at"`
	TTL      time.Duration   `json:"ttl"`
}

func (e *envelope) expired(now time.Time) bool {
	return now.After(e.CachedAt.Add(e.TTL))
}

// Tiered composes the in-process memory cache with a durable storage.Store
// backend. Reads check memory first, then the durable tier; durable hits are
// promoted back into memory. Durable entries that have expired or cannot be
// decoded are deleted and reported as misses. Cache failures never fail the
// caller: the worst outcome of a broken cache is a refetch.
//
// The durable store is shared between clients and owned by the caller;
// Close shuts down only the memory tier.
type Tiered[V any] struct {
	namespace string
	ttl       time.Duration
	enabled   bool
	memory    Cache[V]
	store     storage.Store
	logger    *slog.Logger
	stats     *Statistics
	metrics   *cacheMetrics
}

// NewTiered creates a two-tier cache for one namespace. A nil store, or
// cfg.DisableDurable, leaves only the memory tier. cfg.Enabled set to false
// disables caching entirely; every Get is then a miss and Set a no-op.
func NewTiered[V any](
	ctx context.Context, namespace string, cfg Config, store storage.Store,
	logger *slog.Logger, options ...Option[V],
) (*Tiered[V], error) {
	if namespace == "" {
		return nil, pkgerrors.WrapInvalid(pkgerrors.ErrInvalidKey, "cache", "NewTiered",
			"namespace cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.WrapInvalid(err, "cache", "NewTiered", "config validation failed")
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tiered[V]{
		namespace: namespace,
		ttl:       cfg.TTL,
		enabled:   cfg.Enabled,
		logger:    logger,
		stats:     NewStatistics(),
	}

	if !cfg.Enabled {
		t.memory = NewNoop[V]()
		return t, nil
	}

	opts := applyOptions(options...)

	// Composite hit/miss accounting lives at this level, so the memory
	// tier is built without the metrics option to avoid double counting.
	memory, err := newMemoryTier[V](ctx, cfg, &cacheOptions[V]{evictCallback: opts.evictCallback})
	if err != nil {
		return nil, err
	}
	t.memory = memory

	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, pkgerrors.WrapTransient(err, "cache", "NewTiered", "metrics registration")
	}
	t.metrics = metrics

	if !cfg.DisableDurable {
		t.store = store
	}

	return t, nil
}

// Namespace returns the namespace this cache serves.
func (t *Tiered[V]) Namespace() string {
	return t.namespace
}

// Key builds the canonical key for params within this cache's namespace.
func (t *Tiered[V]) Key(params map[string]any) string {
	return Key(t.namespace, params)
}

// Get retrieves a cached value. A durable-tier hit is promoted into memory
// so the next read stays in process. Backend failures, expired entries, and
// undecodable entries all surface as plain misses.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if !t.enabled {
		return zero, false
	}

	if value, ok := t.memory.Get(key); ok {
		t.recordHit()
		return value, true
	}

	if t.store == nil {
		t.recordMiss()
		return zero, false
	}

	raw, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrKeyNotFound) {
			t.logger.Debug("Durable cache read failed", "namespace", t.namespace, "error", err)
		}
		t.recordMiss()
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.discard(ctx, key, "corrupt envelope", err)
		t.recordMiss()
		return zero, false
	}

	if env.expired(time.Now()) {
		t.discard(ctx, key, "expired", nil)
		t.recordMiss()
		return zero, false
	}

	var value V
	if err := json.Unmarshal(env.Payload, &value); err != nil {
		t.discard(ctx, key, "corrupt payload", err)
		t.recordMiss()
		return zero, false
	}

	if _, err := t.memory.Set(key, value); err != nil {
		t.logger.Debug("Memory tier promotion failed", "namespace", t.namespace, "error", err)
	}

	t.recordHit()
	return value, true
}

// Set stores a value in both tiers. A durable-tier write failure is logged
// and swallowed; the value is already cached in memory, and degrading to a
// single tier beats failing a retrieval that already succeeded upstream.
func (t *Tiered[V]) Set(ctx context.Context, key string, value V) error {
	if !t.enabled {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.WrapInvalid(err, "cache", "Set", "encode payload")
	}

	if _, err := t.memory.Set(key, value); err != nil {
		return err
	}
	t.recordSet()

	if t.store == nil {
		return nil
	}

	raw, err := json.Marshal(envelope{
		Payload:  payload,
		CachedAt: time.Now().UTC(),
		TTL:      t.ttl,
	})
	if err != nil {
		return pkgerrors.WrapInvalid(err, "cache", "Set", "encode envelope")
	}

	if err := t.store.Put(ctx, key, raw); err != nil {
		t.logger.Warn("Durable cache write failed", "namespace", t.namespace, "error", err)
	}
	return nil
}

// Delete removes an entry from both tiers.
func (t *Tiered[V]) Delete(ctx context.Context, key string) error {
	if !t.enabled {
		return nil
	}

	if _, err := t.memory.Delete(key); err != nil {
		return err
	}
	t.recordDelete()

	if t.store == nil {
		return nil
	}
	if err := t.store.Delete(ctx, key); err != nil {
		return pkgerrors.WrapTransient(err, "cache", "Delete", "durable delete failed")
	}
	return nil
}

// Clear empties the memory tier. Durable entries are left to age out by
// TTL; the durable keyspace is shared and hashed, so there is no way to
// enumerate one namespace's entries.
func (t *Tiered[V]) Clear() error {
	return t.memory.Clear()
}

// Stats returns the composite statistics: a hit from either tier counts as
// a hit, a miss means both tiers missed.
func (t *Tiered[V]) Stats() *Statistics {
	return t.stats
}

// Close shuts down the memory tier. The durable store belongs to the
// caller and stays open.
func (t *Tiered[V]) Close() error {
	return t.memory.Close()
}

// discard drops an unusable durable entry so the next request refetches
// instead of tripping over it again.
func (t *Tiered[V]) discard(ctx context.Context, key, reason string, err error) {
	if err != nil {
		t.logger.Debug("Dropping durable cache entry",
			"namespace", t.namespace, "reason", reason, "error", err)
	} else {
		t.logger.Debug("Dropping durable cache entry",
			"namespace", t.namespace, "reason", reason)
	}
	if derr := t.store.Delete(ctx, key); derr != nil {
		t.logger.Debug("Durable cache delete failed", "namespace", t.namespace, "error", derr)
	}
	t.recordEviction()
}

func (t *Tiered[V]) recordHit() {
	t.stats.Hit()
	if t.metrics != nil {
		t.metrics.recordHit()
	}
}

func (t *Tiered[V]) recordMiss() {
	t.stats.Miss()
	if t.metrics != nil {
		t.metrics.recordMiss()
	}
}

func (t *Tiered[V]) recordSet() {
	t.stats.Set()
	t.stats.UpdateSize(int64(t.memory.Size()))
	if t.metrics != nil {
		t.metrics.recordSet()
		t.metrics.updateSize(t.memory.Size())
	}
}

func (t *Tiered[V]) recordDelete() {
	t.stats.Delete()
	if t.metrics != nil {
		t.metrics.recordDelete()
	}
}

func (t *Tiered[V]) recordEviction() {
	t.stats.Eviction()
	if t.metrics != nil {
		t.metrics.recordEviction()
	}
}

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/drugscout/errors"
)

// memoryEntry is a value with its expiry deadline.
type memoryEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *memoryEntry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// memoryCache is the in-process tier: a mutex-guarded map where every entry
// carries the cache TTL. Expired entries are dropped lazily on read and
// swept by a background goroutine.
type memoryCache[V any] struct {
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	items           map[string]*memoryEntry[V]
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]

	shutdown chan struct{}
	done     chan struct{}
}

func newMemoryCache[V any](
	ctx context.Context, ttl, cleanupInterval time.Duration, opts *cacheOptions[V],
) (*memoryCache[V], error) {
	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "newMemoryCache", "metrics registration")
	}

	c := &memoryCache[V]{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*memoryEntry[V]),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.sweep(ctx)

	return c, nil
}

// Get retrieves a fresh value by key. Expired entries are removed and
// reported as misses.
func (c *memoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		c.recordMiss()
		return zero, false
	}

	if entry.expired(time.Now()) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry with a fresh one.
		if current, still := c.items[key]; still && current.expired(time.Now()) {
			delete(c.items, key)
			if c.evictFn != nil {
				defer c.evictFn(key, current.value)
			}
			c.recordEvictions(1, len(c.items))
		}
		c.mu.Unlock()

		c.recordMiss()
		return zero, false
	}

	c.recordHit()
	return entry.value, true
}

// Set stores a value with the cache TTL. Returns true when a new entry was
// created rather than an existing one refreshed.
func (c *memoryCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = &memoryEntry[V]{key: key, value: value, expiresAt: expiresAt}
	size := len(c.items)
	c.mu.Unlock()

	c.recordSet(size)
	return !exists, nil
}

// Delete removes an entry by key.
func (c *memoryCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	entry, exists := c.items[key]
	if exists {
		delete(c.items, key)
		if c.evictFn != nil {
			defer c.evictFn(key, entry.value)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		c.recordDelete(size)
	}
	return exists, nil
}

// Clear removes all entries. Eviction callbacks run after the lock is
// released so they may touch the cache.
func (c *memoryCache[V]) Clear() error {
	c.mu.Lock()
	var entries []*memoryEntry[V]
	if c.evictFn != nil {
		entries = make([]*memoryEntry[V], 0, len(c.items))
		for _, entry := range c.items {
			entries = append(entries, entry)
		}
	}
	c.items = make(map[string]*memoryEntry[V])
	c.mu.Unlock()

	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	return nil
}

func (c *memoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the unexpired keys. Expired entries awaiting the next sweep
// are excluded.
func (c *memoryCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for key, entry := range c.items {
		if !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *memoryCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the sweep goroutine.
func (c *memoryCache[V]) Close() error {
	select {
	case <-c.shutdown:
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cache sweep goroutine to finish")
	}
}

// sweep periodically drops expired entries so long-idle caches do not pin
// stale responses in memory.
func (c *memoryCache[V]) sweep(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *memoryCache[V]) removeExpired() {
	now := time.Now()
	var expired []*memoryEntry[V]

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.expired(now) {
			expired = append(expired, entry)
			delete(c.items, key)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	// Eviction callbacks run outside the lock.
	if c.evictFn != nil {
		for _, entry := range expired {
			c.evictFn(entry.key, entry.value)
		}
	}

	if len(expired) > 0 {
		c.recordEvictions(len(expired), size)
	}
}

func (c *memoryCache[V]) recordHit() {
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
}

func (c *memoryCache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

func (c *memoryCache[V]) recordSet(size int) {
	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}
}

func (c *memoryCache[V]) recordDelete(size int) {
	c.stats.Delete()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(size)
	}
}

func (c *memoryCache[V]) recordEvictions(n, size int) {
	for i := 0; i < n; i++ {
		c.stats.Eviction()
	}
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		for i := 0; i < n; i++ {
			c.metrics.recordEviction()
		}
		c.metrics.updateSize(size)
	}
}

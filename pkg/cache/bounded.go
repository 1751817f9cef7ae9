package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/drugscout/errors"
)

// boundedEntry is a value with its expiry deadline, tracked in LRU order.
type boundedEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *boundedEntry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// boundedCache caps the memory tier for bulk workloads such as prefetch
// runs. Entries expire by TTL like the default memory cache, and once the
// cache holds maxSize entries the least recently used one is evicted to
// make room.
type boundedCache[V any] struct {
	mu              sync.Mutex
	maxSize         int
	ttl             time.Duration
	cleanupInterval time.Duration
	items           map[string]*list.Element
	order           *list.List // front = most recently used
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]

	shutdown chan struct{}
	done     chan struct{}
}

func newBoundedCache[V any](
	ctx context.Context, maxSize int, ttl, cleanupInterval time.Duration, opts *cacheOptions[V],
) (*boundedCache[V], error) {
	metrics, err := opts.buildMetrics()
	if err != nil {
		return nil, errors.WrapTransient(err, "cache", "newBoundedCache", "metrics registration")
	}

	c := &boundedCache[V]{
		maxSize:         maxSize,
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*list.Element),
		order:           list.New(),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.sweep(ctx)

	return c, nil
}

// Get retrieves a fresh value by key and marks it most recently used.
func (c *boundedCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.recordMiss()
		return zero, false
	}

	entry := element.Value.(*boundedEntry[V])
	if entry.expired(time.Now()) {
		removed := c.unlink(element)
		size := len(c.items)
		c.mu.Unlock()

		c.notifyEvicted(removed)
		c.recordEvictions(1, size)
		c.recordMiss()
		return zero, false
	}

	c.order.MoveToFront(element)
	value := entry.value
	c.mu.Unlock()

	c.recordHit()
	return value, true
}

// Set stores a value with the cache TTL, evicting the least recently used
// entry when the cache is full. Returns true when a new entry was created.
func (c *boundedCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		entry := element.Value.(*boundedEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(element)
		size := len(c.items)
		c.mu.Unlock()

		c.recordSet(size)
		return false, nil
	}

	element := c.order.PushFront(&boundedEntry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element

	var evicted *boundedEntry[V]
	if len(c.items) > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			evicted = c.unlink(oldest)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if evicted != nil {
		c.notifyEvicted(evicted)
		c.recordEvictions(1, size)
	}
	c.recordSet(size)
	return true, nil
}

// Delete removes an entry by key.
func (c *boundedCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	removed := c.unlink(element)
	size := len(c.items)
	c.mu.Unlock()

	c.notifyEvicted(removed)
	c.recordDelete(size)
	return true, nil
}

// Clear removes all entries.
func (c *boundedCache[V]) Clear() error {
	c.mu.Lock()
	var entries []*boundedEntry[V]
	if c.evictFn != nil {
		entries = make([]*boundedEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			entries = append(entries, element.Value.(*boundedEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
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

func (c *boundedCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the unexpired keys, most recently used first.
func (c *boundedCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*boundedEntry[V])
		if !entry.expired(now) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

func (c *boundedCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the sweep goroutine.
func (c *boundedCache[V]) Close() error {
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

// unlink removes an entry from both the map and the LRU list and returns
// it. Callers must hold the mutex and invoke the eviction callback after
// releasing it.
func (c *boundedCache[V]) unlink(element *list.Element) *boundedEntry[V] {
	entry := element.Value.(*boundedEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}

// notifyEvicted invokes the eviction callback. Must be called without grabbing
// the mutex so callbacks may touch the cache.
func (c *boundedCache[V]) notifyEvicted(entry *boundedEntry[V]) {
	if c.evictFn != nil {
		c.evictFn(entry.key, entry.value)
	}
}

func (c *boundedCache[V]) sweep(ctx context.Context) {
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

func (c *boundedCache[V]) removeExpired() {
	now := time.Now()
	var expired []*boundedEntry[V]

	c.mu.Lock()
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*boundedEntry[V])
		if entry.expired(now) {
			expired = append(expired, c.unlink(element))
		}
		element = next
	}
	size := len(c.items)
	c.mu.Unlock()

	for _, entry := range expired {
		c.notifyEvicted(entry)
	}

	if len(expired) > 0 {
		c.recordEvictions(len(expired), size)
	}
}

func (c *boundedCache[V]) recordHit() {
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
}

func (c *boundedCache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

func (c *boundedCache[V]) recordSet(size int) {
	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}
}

func (c *boundedCache[V]) recordDelete(size int) {
	c.stats.Delete()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(size)
	}
}

func (c *boundedCache[V]) recordEvictions(n, size int) {
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

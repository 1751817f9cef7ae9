// Package cache provides the thread-safe, two-tier response cache used by the
// retrieval clients, with built-in statistics tracking and optional Prometheus
// metrics integration.
//
// # Overview
//
// The package has three building blocks:
//
//   - Memory caches: generic in-process caches with TTL expiry, optionally
//     bounded by an LRU size cap.
//   - Key: canonical cache key construction from a namespace and request
//     parameters.
//   - Tiered: the composition used in production. A memory cache in front of
//     a durable storage.Store backend shared across processes.
//
// Upstream biomedical APIs are slow and rate limited, and the data changes on
// the order of days. Responses are therefore cached aggressively: the default
// TTL is five days, and a cache entry written by one run is visible to the
// next run through the durable tier.
//
// # Quick Start
//
// Standalone memory cache:
//
//	c, err := cache.NewMemory[*TrialPage](ctx, 5*time.Minute, time.Minute)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//	_, _ = c.Set("key", page)
//	page, ok := c.Get("key")
//
// Tiered cache over a durable store:
//
//	store, err := filestore.New(filestore.Config{BaseDir: "~/.drugscout/cache"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	tc, err := cache.NewTiered[*TrialPage](ctx, "trials", cache.DefaultConfig(), store, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer tc.Close()
//
//	key := tc.Key(map[string]any{"drug_name": "pembrolizumab", "page_size": 100})
//	if page, ok := tc.Get(ctx, key); ok {
//		return page, nil
//	}
//	page = fetchFromUpstream()
//	_ = tc.Set(ctx, key, page)
//
// # Canonical Keys
//
// Key builds a deterministic key from a namespace and the parameters of the
// request being cached:
//
//	cache.Key("trials", map[string]any{"drug_name": "imatinib", "page_size": 100})
//
// The namespace and parameters are merged into one map, serialized as JSON
// with sorted keys, and hashed with SHA-256. The hex digest is the key. Two
// calls with the same parameters in any order produce the same key, and the
// namespace keeps identical parameters for different request kinds from
// colliding. Values that JSON cannot encode are coerced to strings rather
// than failing, so a key is always produced.
//
// # Memory Strategies
//
// TTL (default):
//
// An unbounded map whose entries expire after a time-to-live period. A
// background goroutine sweeps expired entries. Suited to interactive lookups
// where the working set is small.
//
//	c, _ := cache.NewMemory[V](ctx, ttl, cleanupInterval)
//
// Bounded:
//
// Adds an LRU size cap on top of TTL expiry. When the cache is full the least
// recently used entry is evicted. Suited to bulk workloads such as prefetch
// runs that would otherwise grow the map without limit.
//
//	c, _ := cache.NewBounded[V](ctx, maxSize, ttl, cleanupInterval)
//
// Both are available through Config as StrategyTTL and StrategyBounded, and
// NewFromConfig builds the right one. NewNoop returns a cache that stores
// nothing, used when caching is disabled.
//
// # Tiered Reads and Writes
//
// Tiered.Get checks the memory tier first. On a memory miss it consults the
// durable store, and a fresh durable entry is promoted into memory so the
// next read is served locally. Durable entries carry their write time and
// TTL; an expired or undecodable entry is deleted from the store and treated
// as a miss.
//
// Tiered.Get never returns an error. A failing store, a corrupt entry, or an
// expired entry all degrade to a miss, because falling back to the upstream
// API is always correct while failing a retrieval that already succeeded
// upstream is not. Failures are logged and visible in the miss counters.
//
// Tiered.Set writes memory first, then the durable store. A durable write
// failure is logged and swallowed for the same reason. Delete removes the key
// from both tiers. Clear empties only the memory tier: the durable keyspace
// is hashed and shared, so one namespace's entries cannot be enumerated, and
// durable entries age out by TTL instead.
//
// The durable tier is optional twice over: passing a nil store runs the cache
// as memory only, and Config.DisableDurable opts out explicitly even when a
// store is available (used by tests and one-shot scripts).
//
// # Observability
//
// Statistics (always on):
//   - Atomic counters for hits, misses, sets, deletes, evictions
//   - Computed hit ratio, miss ratio, and requests per second
//   - Available via Stats(), no configuration required
//
// Prometheus metrics (optional):
//   - Enabled via WithMetrics(registry, client)
//   - Exported under the drugscout_cache_* names with a client label, so one
//     registry can hold the opentargets and ctgov caches side by side
//
// Statistics and metrics track independently. Statistics stay available in
// tests and minimal deployments without a Prometheus registry, and reading an
// atomic counter is much cheaper than gathering a metric family, so the small
// duplication buys programmatic access without coupling the package to the
// metrics stack.
//
// A Tiered cache accounts hits and misses at the composite level: a durable
// hit is a cache hit even though the memory tier missed. Its inner memory
// cache is therefore created without metrics, and only the Tiered counters
// are exported.
//
// # Functional Options
//
//	c, err := cache.NewBounded[V](ctx, maxSize, ttl, cleanupInterval,
//		cache.WithMetrics[V](registry, "opentargets"),
//		cache.WithEvictionCallback[V](func(key string, value V) {
//			logger.Debug("Evicted", "key", key)
//		}),
//	)
//
// # Thread Safety
//
// All operations are safe for concurrent use:
//   - Reads and writes are serialized with mutex protection
//   - Statistics use atomic operations
//   - Background sweeps run in their own goroutine
//   - Eviction callbacks are invoked outside locks so a callback may touch
//     the cache without deadlocking
//
// # Context and Cleanup
//
// Memory caches run a background sweep goroutine. Pass a context that is
// canceled when the cache should stop, or call Close:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	c, _ := cache.NewMemory[V](ctx, ttl, cleanupInterval)
//	defer c.Close()
//
// Closing a Tiered cache stops its memory tier. The durable store is owned by
// the caller, typically shared between several Tiered caches, and is closed
// separately.
//
// # Testing
//
// Statistics make cache behavior easy to assert:
//
//	c, _ := cache.NewMemory[int](ctx, time.Minute, time.Minute)
//	_, _ = c.Set("key", 42)
//	_, _ = c.Get("key")
//	_, _ = c.Get("missing")
//
//	// c.Stats().Hits() == 1, c.Stats().Misses() == 1, c.Stats().HitRatio() == 0.5
//
// See cache_test.go and tiered_test.go for the behavioral suites and
// benchmark_test.go for performance coverage.
package cache

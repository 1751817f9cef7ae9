// Package cache provides the two-tier response cache used by the retrieval
// clients.
//
// Tier one is an in-process memory cache (TTL map, or bounded LRU+TTL for
// bulk workloads). Tier two is a durable storage.Store backend shared across
// processes. The Tiered type composes both; Key builds canonical cache keys
// from a namespace and request parameters.
//
// All implementations are thread-safe with built-in statistics and optional
// Prometheus metrics via functional options.
package cache

import (
	"github.com/c360/drugscout/errors"
)

// Cache is the in-process memory tier. It is parameterized by value type V
// for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if present
	// and fresh, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns all unexpired keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics, or nil for the noop cache.
	Stats() *Statistics

	// Close stops background goroutines and releases resources.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey rejects keys the storage backends cannot represent.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}

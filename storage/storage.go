// Package storage provides pluggable durable backends for cached upstream
// responses.
package storage

import "context"

// Store is the backend interface for the durable cache tier.
//
// Each retrieval client composes a Store (usually shared across clients)
// behind its in-process cache. Keys are the canonical SHA-256 digests
// produced by pkg/cache, values are JSON envelopes carrying the cached
// payload and its expiry metadata.
//
// Implementations:
//   - filestore.Store: one file per entry under a cache directory
//   - sqlitestore.Store: single-file SQLite database
//   - natsstore.Store: NATS JetStream key-value bucket, shared between hosts
//
// Get on a missing key returns an error wrapping errors.ErrKeyNotFound so
// callers can tell an ordinary miss from a backend failure.
//
// All implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// Put stores data at the specified key, overwriting any existing value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the data stored at key. A missing key yields an error
	// wrapping errors.ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys matching the given prefix, in lexicographic
	// order. An empty prefix lists every key.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the entry at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources. The Store must not be used after
	// Close returns.
	Close() error
}

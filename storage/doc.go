// Package storage defines the pluggable backend interface for the durable
// cache tier.
//
// # Overview
//
// Upstream evidence queries are expensive and rate limited, so responses are
// cached in two tiers: a per-client in-process cache and a durable tier that
// survives restarts and can be shared between processes. This package defines
// the Store interface that durable backends implement:
//   - filestore: one JSON file per entry under a cache directory
//   - sqlitestore: a single-file SQLite database
//   - natsstore: a NATS JetStream key-value bucket shared between hosts
//
// # Core Concepts
//
// The Store interface uses a flat key-value model:
//   - Keys are strings; the cache layer supplies SHA-256 hex digests, so
//     keys are filename-safe and uniformly distributed
//   - Values are opaque []byte; the cache layer stores JSON envelopes with
//     payload and expiry metadata
//   - All operations take a context.Context for cancellation and timeouts
//
// Expiry is owned by the cache layer, not the backend. Backends store bytes
// verbatim; the tiered cache reads the envelope, checks freshness, and calls
// Delete on entries that have expired or cannot be decoded.
//
// # Error Handling
//
// Get on a missing key returns an error wrapping errors.ErrKeyNotFound.
// This lets the cache layer treat a miss as routine while still logging
// genuine backend failures (connection loss, corrupt database). Other errors
// are classified with the errors package: WrapInvalid for bad input,
// WrapTransient for backend unavailability.
//
// # Thread Safety
//
// All Store implementations must be safe for concurrent use. Retrieval
// clients fan out concurrent requests and share one durable store.
//
// # Testing
//
// File and SQLite backends are tested against t.TempDir. The NATS backend
// is tested against a real server via testcontainers, behind the
// integration build tag.
package storage

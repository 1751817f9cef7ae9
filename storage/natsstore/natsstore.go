// Package natsstore provides a durable cache backend on a JetStream
// key-value bucket.
//
// Unlike the file and SQLite backends, a NATS bucket is shared across
// machines, so a response fetched by one worker is a cache hit for every
// other worker pointed at the same server.
package natsstore

import (
	"context"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/natsclient"
	"github.com/c360/drugscout/storage"
)

// Config holds NATS store configuration
type Config struct {
	Bucket      string `json:"bucket"`
	Description string `json:"description"`
}

// DefaultConfig returns the default bucket configuration
func DefaultConfig() Config {
	return Config{
		Bucket:      "scout-cache",
		Description: "Shared durable cache for upstream responses",
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Bucket == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"natsstore", "Validate", "bucket name is required")
	}
	return nil
}

// Store implements storage.Store over a JetStream KV bucket
type Store struct {
	kvStore *natsclient.KVStore
}

var _ storage.Store = (*Store)(nil)

// New creates a store on the configured bucket, creating the bucket if
// it does not exist. The client must already be connected; it stays
// owned by the caller and is not closed by the store.
func New(ctx context.Context, client *natsclient.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"natsstore", "New", "NATS client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		History:     1,
	}); err != nil {
		return nil, errors.WrapTransient(err, "natsstore", "New",
			"create bucket "+cfg.Bucket)
	}

	kvStore, err := client.NewKVStore(cfg.Bucket)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsstore", "New",
			"open kv store "+cfg.Bucket)
	}

	return &Store{kvStore: kvStore}, nil
}

// Put stores data under the given key
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.kvStore.Put(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "natsstore", "Put", key)
	}

	return nil
}

// Get retrieves data by key.
// Returns an error wrapping errors.ErrKeyNotFound when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	entry, err := s.kvStore.Get(ctx, key)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound,
				"natsstore", "Get", key)
		}
		return nil, errors.WrapTransient(err, "natsstore", "Get", key)
	}

	return entry.Value, nil
}

// List returns all keys with the given prefix in lexicographic order.
// An empty prefix lists every key in the bucket.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	all, err := s.kvStore.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsstore", "List", prefix)
	}

	// Bucket key order is arbitrary, so filter then sort
	keys := make([]string, 0, len(all))
	for _, key := range all {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := s.kvStore.Delete(ctx, key); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil
		}
		return errors.WrapTransient(err, "natsstore", "Delete", key)
	}

	return nil
}

// Close releases the store. The underlying NATS client belongs to the
// caller and stays open.
func (s *Store) Close() error {
	return nil
}

// validateKey rejects keys the bucket cannot address
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey,
			"natsstore", "validateKey", "empty key")
	}
	return nil
}

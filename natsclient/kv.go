package natsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/drugscout/pkg/retry"
)

// KV error sentinels
var (
	ErrKVKeyNotFound        = errors.New("key not found")
	ErrKVKeyExists          = errors.New("key already exists")
	ErrKVRevisionMismatch   = errors.New("revision mismatch")
	ErrKVMaxRetriesExceeded = errors.New("max retries exceeded")
)

// KVEntry represents a key-value entry with revision tracking
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV store behavior
type KVOptions struct {
	MaxRetries            int           // Maximum CAS retry attempts
	RetryDelay            time.Duration // Initial delay between retries
	Timeout               time.Duration // Per-operation timeout
	MaxValueSize          int           // Maximum value size in bytes
	UseExponentialBackoff bool          // Exponential vs fixed retry delay
	MaxRetryDelay         time.Duration // Cap on the retry delay
}

// DefaultKVOptions returns sensible defaults for KV operations
func DefaultKVOptions() KVOptions {
	return KVOptions{
		MaxRetries:            10,
		RetryDelay:            10 * time.Millisecond,
		Timeout:               5 * time.Second,
		MaxValueSize:          1024 * 1024, // 1MB
		UseExponentialBackoff: true,
		MaxRetryDelay:         time.Second,
	}
}

// KVStore wraps a JetStream key-value bucket with timeouts, size limits,
// and compare-and-swap retry support
type KVStore struct {
	client     *Client
	bucket     jetstream.KeyValue
	bucketName string
	options    KVOptions
	logger     *slog.Logger
}

// NewKVStore creates a KV store backed by an existing bucket
func (c *Client) NewKVStore(bucketName string, opts ...func(*KVOptions)) (*KVStore, error) {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithTimeout(context.Background(), options.Timeout)
	defer cancel()

	bucket, err := c.GetKeyValueBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("kv store %s: %w", bucketName, err)
	}

	return &KVStore{
		client:     c,
		bucket:     bucket,
		bucketName: bucketName,
		options:    options,
		logger:     c.logger,
	}, nil
}

// Bucket returns the underlying JetStream bucket
func (kv *KVStore) Bucket() jetstream.KeyValue {
	return kv.bucket
}

// applyTimeout bounds the context with the configured operation timeout
func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, kv.options.Timeout)
}

// checkValueSize validates a value against the configured size limit
func (kv *KVStore) checkValueSize(key string, value []byte) error {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return fmt.Errorf("kv %s: value size %d exceeds maximum %d",
			key, len(value), kv.options.MaxValueSize)
	}
	return nil
}

// Get retrieves an entry by key.
// Returns ErrKVKeyNotFound if the key does not exist.
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if IsKVNotFoundError(err) {
			return nil, fmt.Errorf("kv get %s: %w", key, ErrKVKeyNotFound)
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}

	return &KVEntry{
		Key:      key,
		Value:    entry.Value(),
		Revision: entry.Revision(),
	}, nil
}

// Put stores a value unconditionally and returns the new revision
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if err := kv.checkValueSize(key, value); err != nil {
		return 0, err
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	revision, err := kv.bucket.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("kv put %s: %w", key, err)
	}

	return revision, nil
}

// Create stores a value only if the key does not already exist.
// Returns ErrKVKeyExists if it does.
func (kv *KVStore) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	if err := kv.checkValueSize(key, value); err != nil {
		return 0, err
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	revision, err := kv.bucket.Create(ctx, key, value)
	if err != nil {
		if IsKVConflictError(err) {
			return 0, fmt.Errorf("kv create %s: %w", key, ErrKVKeyExists)
		}
		return 0, fmt.Errorf("kv create %s: %w", key, err)
	}

	return revision, nil
}

// Update stores a value only if the current revision matches.
// Returns ErrKVRevisionMismatch on conflict.
func (kv *KVStore) Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error) {
	if err := kv.checkValueSize(key, value); err != nil {
		return 0, err
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	newRevision, err := kv.bucket.Update(ctx, key, value, revision)
	if err != nil {
		if IsKVConflictError(err) {
			return 0, fmt.Errorf("kv update %s: %w", key, ErrKVRevisionMismatch)
		}
		return 0, fmt.Errorf("kv update %s: %w", key, err)
	}

	return newRevision, nil
}

// getRetryConfig translates KV options into a retry configuration
func (kv *KVStore) getRetryConfig() retry.Config {
	multiplier := 1.0
	if kv.options.UseExponentialBackoff {
		multiplier = 2.0
	}

	return retry.Config{
		MaxAttempts:  kv.options.MaxRetries + 1,
		InitialDelay: kv.options.RetryDelay,
		MaxDelay:     kv.options.MaxRetryDelay,
		Multiplier:   multiplier,
		AddJitter:    true,
	}
}

// UpdateWithRetry performs a read-modify-write with compare-and-swap retry.
// updateFn receives the current value (nil if the key does not exist) and
// returns the new value to store. Revision conflicts trigger a re-read and
// another attempt; after the retry budget is spent ErrKVMaxRetriesExceeded
// is returned.
func (kv *KVStore) UpdateWithRetry(ctx context.Context, key string, updateFn func(current []byte) ([]byte, error)) error {
	cfg := kv.getRetryConfig()

	err := retry.Do(ctx, cfg, func() error {
		var current []byte
		var revision uint64

		entry, err := kv.bucket.Get(ctx, key)
		if err != nil {
			if !IsKVNotFoundError(err) {
				return fmt.Errorf("read current value: %w", err)
			}
			// Key doesn't exist yet, revision 0 selects Create below
		} else {
			current = entry.Value()
			revision = entry.Revision()
		}

		updated, err := updateFn(current)
		if err != nil {
			return retry.NonRetryable(fmt.Errorf("update function: %w", err))
		}

		if err := kv.checkValueSize(key, updated); err != nil {
			return retry.NonRetryable(err)
		}

		if revision == 0 {
			_, err = kv.bucket.Create(ctx, key, updated)
		} else {
			_, err = kv.bucket.Update(ctx, key, updated, revision)
		}
		// Conflicts stay retryable so the next attempt re-reads
		return err
	})

	if err != nil {
		if IsKVConflictError(err) {
			kv.logger.Warn("KV update exhausted retries on conflicts",
				"bucket", kv.bucketName, "key", key, "max_retries", kv.options.MaxRetries)
			return fmt.Errorf("kv update %s: %w", key, ErrKVMaxRetriesExceeded)
		}
		return fmt.Errorf("kv update %s: %w", key, err)
	}

	return nil
}

// Delete removes a key.
// Returns ErrKVKeyNotFound if the key does not exist.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if IsKVNotFoundError(err) {
			return fmt.Errorf("kv delete %s: %w", key, ErrKVKeyNotFound)
		}
		return fmt.Errorf("kv delete %s: %w", key, err)
	}

	return nil
}

// Keys lists all keys in the bucket.
// Returns an empty slice when the bucket has no entries.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("kv keys: %w", err)
	}

	return keys, nil
}

// IsKVNotFoundError checks if an error indicates a missing key
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKVKeyNotFound) || errors.Is(err, jetstream.ErrKeyNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "key not found") ||
		strings.Contains(errStr, "10037")
}

// IsKVConflictError checks if an error indicates a revision conflict or
// an existing key
func IsKVConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKVRevisionMismatch) || errors.Is(err, ErrKVKeyExists) ||
		errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "wrong last sequence") ||
		strings.Contains(errStr, "10071") ||
		strings.Contains(errStr, "key exists") ||
		strings.Contains(errStr, "10058")
}

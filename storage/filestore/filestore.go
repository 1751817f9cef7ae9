// Package filestore implements the durable cache tier as one file per entry
// under a base directory.
//
// The file name is the cache key plus a ".json" suffix. There is no index
// file: the key is the address, and a directory listing is the keyspace.
// Entries are written to a temporary file and renamed into place so a reader
// never observes a half-written entry, even with several processes sharing
// the directory.
package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/storage"
)

const entrySuffix = ".json"

// Config holds filestore settings.
type Config struct {
	// BaseDir is the directory entries live under. Created by New if it
	// does not exist.
	BaseDir string `json:"base_dir"`
}

// DefaultConfig returns a config rooted under the user's home directory.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{BaseDir: filepath.Join(home, ".drugscout", "cache")}
}

// Validate checks the configuration for required fields.
func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "filestore", "Validate", "base_dir cannot be empty")
	}
	return nil
}

// Store persists cache entries as individual files.
type Store struct {
	baseDir string
}

var _ storage.Store = (*Store)(nil)

// New creates a filestore rooted at cfg.BaseDir, creating the directory if
// needed.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, errors.WrapFatal(err, "filestore", "New", "create cache directory")
	}
	return &Store{baseDir: cfg.BaseDir}, nil
}

// Put stores data at the specified key, overwriting any existing entry.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	// Write-then-rename keeps concurrent readers off partial writes.
	tmp, err := os.CreateTemp(s.baseDir, key+".tmp-*")
	if err != nil {
		return errors.WrapTransient(err, "filestore", "Put", "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.WrapTransient(err, "filestore", "Put", "write entry")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WrapTransient(err, "filestore", "Put", "close entry")
	}
	if err := os.Rename(tmp.Name(), s.entryPath(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WrapTransient(err, "filestore", "Put", "publish entry")
	}
	return nil
}

// Get retrieves the data stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "filestore", "Get", key)
		}
		return nil, errors.WrapTransient(err, "filestore", "Get", "read entry")
	}
	return data, nil
}

// List returns all keys with the given prefix in lexicographic order.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	dirEntries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.WrapTransient(err, "filestore", "List", "read cache directory")
	}

	// ReadDir sorts by file name; a fixed suffix preserves key order.
	keys := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		key, ok := strings.CutSuffix(entry.Name(), entrySuffix)
		if !ok {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Delete removes the entry at key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.WrapTransient(err, "filestore", "Delete", "remove entry")
	}
	return nil
}

// Close is a no-op; the filestore holds no open resources between calls.
func (s *Store) Close() error {
	return nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.baseDir, key+entrySuffix)
}

// validateKey rejects keys that would escape the cache directory. Keys become
// file names, so path metacharacters are not allowed.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "filestore", "validateKey", "key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errors.WrapInvalid(errors.ErrInvalidKey, "filestore", "validateKey", key)
	}
	return nil
}

// Package sqlitestore implements the durable cache tier as a single-file
// SQLite database.
//
// One table holds every entry keyed by the canonical cache key. The stored
// bytes are opaque to this package; expiry lives in the envelope the cache
// layer writes. A last-update epoch timestamp is kept per row for
// operational inspection of the database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/storage"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Config holds sqlitestore settings.
type Config struct {
	// Path is the database file location. The parent directory is created
	// by New if it does not exist.
	Path string `json:"path"`
}

// DefaultConfig returns a config with the database under the user's home
// directory.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{Path: filepath.Join(home, ".drugscout", "cache.db")}
}

// Validate checks the configuration for required fields.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "sqlitestore", "Validate", "path cannot be empty")
	}
	return nil
}

// Store persists cache entries in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at cfg.Path and ensures the
// entries table exists.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, errors.WrapFatal(err, "sqlitestore", "New", "create database directory")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, errors.WrapFatal(err, "sqlitestore", "New", "open database")
	}

	// SQLite allows one writer at a time; a single pooled connection keeps
	// concurrent puts from surfacing as busy errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createEntriesTable); err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "sqlitestore", "New", "migrate database")
	}

	return &Store{db: db}, nil
}

// Put stores data at the specified key, overwriting any existing entry.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, data, updated_at) VALUES (?, ?, ?)`,
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Put", "insert entry")
	}
	return nil
}

// Get retrieves the data stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM cache_entries WHERE key = ?`, key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "sqlitestore", "Get", key)
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "sqlitestore", "Get", "query entry")
	}
	return data, nil
}

// List returns all keys with the given prefix in lexicographic order.
// Cache keys are hex digests, so LIKE wildcards in the prefix are not a
// concern.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE key LIKE ? ORDER BY key ASC`, prefix+"%",
	)
	if err != nil {
		return nil, errors.WrapTransient(err, "sqlitestore", "List", "query keys")
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.WrapTransient(err, "sqlitestore", "List", "scan key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "sqlitestore", "List", "iterate keys")
	}
	return keys, nil
}

// Delete removes the entry at key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Delete", "delete entry")
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.WrapTransient(err, "sqlitestore", "Close", "close database")
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "sqlitestore", "validateKey", "key cannot be empty")
	}
	return nil
}

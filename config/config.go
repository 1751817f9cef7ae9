package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/drugscout/ctgov"
	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/httpclient"
	"github.com/c360/drugscout/natsclient"
	"github.com/c360/drugscout/opentargets"
	"github.com/c360/drugscout/pkg/tlsutil"
	"github.com/c360/drugscout/prefetch"
	"github.com/c360/drugscout/storage/filestore"
	"github.com/c360/drugscout/storage/natsstore"
	"github.com/c360/drugscout/storage/sqlitestore"
)

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNATS   = "nats"
)

// Config is the full settings tree for the retrieval layer. It is a
// composition convenience: callers read the sections they need and hand
// them to the matching constructors. No client consults it on its own.
type Config struct {
	// HTTP is the shared executor tuning. Source is stamped per client
	// by ExecutorConfig.
	HTTP httpclient.Config `json:"http"`

	// Storage selects and configures the durable cache tier.
	Storage StorageConfig `json:"storage"`

	// NATS is the connection behind the "nats" storage backend.
	NATS NATSConfig `json:"nats"`

	// OpenTargets configures the knowledge-graph client.
	OpenTargets opentargets.Config `json:"open_targets"`

	// Registry configures the trial-registry client.
	Registry ctgov.Config `json:"registry"`

	// Prefetch sizes the cache-warming pool.
	Prefetch prefetch.Config `json:"prefetch"`
}

// DefaultConfig returns the production defaults for every section.
func DefaultConfig() Config {
	return Config{
		HTTP:        httpclient.DefaultConfig("drugscout"),
		Storage:     DefaultStorageConfig(),
		NATS:        DefaultNATSConfig(),
		OpenTargets: opentargets.DefaultConfig(),
		Registry:    ctgov.DefaultConfig(),
		Prefetch:    prefetch.DefaultConfig(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.OpenTargets.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	return c.Prefetch.Validate()
}

// ExecutorConfig returns the shared HTTP settings stamped with a
// per-client source name. The source shows up in logs, metrics, and
// error classification.
func (c Config) ExecutorConfig(source string) httpclient.Config {
	hc := c.HTTP
	if source != "" {
		hc.Source = source
	}
	return hc
}

// String returns an indented JSON rendering. Credentials are not
// redacted; keep it out of logs.
func (c Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// WriteFile writes the configuration to path, JSON or YAML by extension.
// Files written here round-trip through Loader.LoadFile.
func (c Config) WriteFile(path string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// Marshal through a JSON round-trip so the YAML keys match the
		// json tags the loader reads back.
		jsonData, err := json.Marshal(c)
		if err != nil {
			return errors.WrapInvalid(err, "config", "WriteFile", "encode configuration")
		}
		var m map[string]any
		if err := json.Unmarshal(jsonData, &m); err != nil {
			return errors.WrapInvalid(err, "config", "WriteFile", "encode configuration")
		}
		data, err = yaml.Marshal(m)
		if err != nil {
			return errors.WrapInvalid(err, "config", "WriteFile", "encode yaml")
		}
	default:
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.WrapInvalid(err, "config", "WriteFile", "encode json")
		}
	}
	return safeWriteFile(path, data)
}

// StorageConfig selects the durable cache backend and carries the
// per-backend settings. Backend "memory" runs the cache without a
// durable tier.
type StorageConfig struct {
	Backend string             `json:"backend"`
	File    filestore.Config   `json:"file"`
	SQLite  sqlitestore.Config `json:"sqlite"`
	NATS    natsstore.Config   `json:"nats"`
}

// DefaultStorageConfig returns the file backend with every backend's
// defaults filled in, so switching Backend needs no other edits.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: BackendFile,
		File:    filestore.DefaultConfig(),
		SQLite:  sqlitestore.DefaultConfig(),
		NATS:    natsstore.DefaultConfig(),
	}
}

// Validate checks the backend name and the selected backend's settings.
// Unselected backends may stay blank.
func (c StorageConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFile:
		return c.File.Validate()
	case BackendSQLite:
		return c.SQLite.Validate()
	case BackendNATS:
		return c.NATS.Validate()
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown storage backend %q", c.Backend))
	}
}

// NATSConfig holds the connection settings used when the durable cache
// lives in a JetStream bucket.
type NATSConfig struct {
	URL           string               `json:"url"`
	Name          string               `json:"name"`
	Username      string               `json:"username"`
	Password      string               `json:"password"`
	Token         string               `json:"token"`
	Timeout       time.Duration        `json:"timeout"`
	MaxReconnects int                  `json:"max_reconnects"`
	ReconnectWait time.Duration        `json:"reconnect_wait"`
	TLS           tlsutil.ClientConfig `json:"tls"`
}

// DefaultNATSConfig returns a local server connection with infinite
// reconnects.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "drugscout",
		Timeout:       5 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Validate checks the configuration.
func (c NATSConfig) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "nats url is required")
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "nats timeout cannot be negative")
	}
	if c.ReconnectWait < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "nats reconnect wait cannot be negative")
	}
	return c.TLS.Validate()
}

// ClientOptions maps the section onto natsclient options. Zero values
// fall through to the client's own defaults. The error is a TLS
// materialization failure: unreadable CA or certificate files.
func (c NATSConfig) ClientOptions() ([]natsclient.ClientOption, error) {
	var opts []natsclient.ClientOption
	if c.Name != "" {
		opts = append(opts, natsclient.WithName(c.Name))
	}
	if c.Username != "" || c.Password != "" {
		opts = append(opts, natsclient.WithCredentials(c.Username, c.Password))
	}
	if c.Token != "" {
		opts = append(opts, natsclient.WithToken(c.Token))
	}
	if c.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(c.Timeout))
	}
	if c.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(c.MaxReconnects))
	}
	if c.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(c.ReconnectWait))
	}
	if c.TLS.Enabled {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(c.TLS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, natsclient.WithTLSConfig(tlsConfig))
	}
	return opts, nil
}

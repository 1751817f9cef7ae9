// Package tlsutil builds client TLS configurations from declarative
// settings: extra trusted CAs on top of the system pool, an optional
// client certificate for servers that demand mutual TLS, and a minimum
// protocol version.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/drugscout/errors"
)

// ClientConfig describes the TLS side of an outbound connection. The
// zero value (Enabled false) means plain TCP.
type ClientConfig struct {
	// Enabled switches TLS on for the connection.
	Enabled bool `json:"enabled"`

	// CAFiles are PEM files trusted in addition to the system pool.
	CAFiles []string `json:"ca_files,omitempty"`

	// CertFile and KeyFile present a client certificate when both are
	// set.
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`

	// MinVersion is "1.2" or "1.3"; empty means 1.2.
	MinVersion string `json:"min_version,omitempty"`

	// InsecureSkipVerify disables server certificate verification.
	// Development escape hatch only.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// Validate checks the configuration without touching the filesystem.
func (c ClientConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate",
			"cert_file and key_file must be set together")
	}
	switch c.MinVersion {
	case "", "1.2", "1.3":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate",
			fmt.Sprintf("min_version must be 1.2 or 1.3, got %q", c.MinVersion))
	}
	return nil
}

// LoadClientTLSConfig materializes the tls.Config: the system CA pool
// extended with CAFiles, the client keypair when configured, and the
// minimum version. A disabled config yields nil, meaning plain TCP.
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion: parseVersion(cfg.MinVersion),
	}

	// System pool first; CAFiles extend it rather than replace it.
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig",
				fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(errors.ErrParsingFailed, "tlsutil", "LoadClientTLSConfig",
				fmt.Sprintf("no certificates in %s", caFile))
		}
	}
	tlsConfig.RootCAs = rootCAs

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig",
				"load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}

// parseVersion maps a version string to its crypto/tls constant,
// defaulting to 1.2.
func parseVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

package natsclient

import "time"

// Preset option bundles for common test shapes.

// WithFastStartup favors quick container startup for unit-style
// integration tests
func WithFastStartup() []TestOption {
	return []TestOption{
		WithTestTimeout(2 * time.Second),
		WithStartTimeout(15 * time.Second),
	}
}

// WithIntegrationDefaults enables the features cache integration tests
// need, KV included
func WithIntegrationDefaults() []TestOption {
	return []TestOption{
		WithKV(),
		WithTestTimeout(5 * time.Second),
		WithStartTimeout(30 * time.Second),
	}
}

// WithMinimalFeatures starts a bare NATS server without JetStream
func WithMinimalFeatures() []TestOption {
	return []TestOption{
		WithTestTimeout(2 * time.Second),
	}
}

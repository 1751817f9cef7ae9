package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/pkg/cache"
)

// writeLayer drops a layer file into dir and returns its path.
func writeLayer(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoLayersReturnsDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_JSONLayerOverridesListedFieldsOnly(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.json",
		`{"registry": {"page_size": 25}, "open_targets": {"cache": {"ttl": "2d"}}}`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Registry.PageSize)
	assert.Equal(t, 48*time.Hour, cfg.OpenTargets.Cache.TTL)

	def := DefaultConfig()
	assert.Equal(t, def.Registry.BaseURL, cfg.Registry.BaseURL, "sibling fields keep their defaults")
	assert.Equal(t, def.OpenTargets.Cache.CleanupInterval, cfg.OpenTargets.Cache.CleanupInterval)
	assert.Equal(t, def.HTTP.Timeout, cfg.HTTP.Timeout)
}

func TestLoad_YAMLLayer(t *testing.T) {
	content := `
http:
  timeout: 10s
  retry:
    max_retries: 5
storage:
  backend: sqlite
  sqlite:
    path: /tmp/scout-test/cache.db
open_targets:
  cache:
    strategy: bounded
    max_size: 2000
`
	path := writeLayer(t, t.TempDir(), "layer.yaml", content)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.Retry.MaxRetries)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/scout-test/cache.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, cache.StrategyBounded, cfg.OpenTargets.Cache.Strategy)
	assert.Equal(t, 2000, cfg.OpenTargets.Cache.MaxSize)
	assert.Equal(t, DefaultConfig().HTTP.Retry.MaxDelay, cfg.HTTP.Retry.MaxDelay)
}

func TestLoad_LaterLayerWins(t *testing.T) {
	dir := t.TempDir()
	base := writeLayer(t, dir, "base.json",
		`{"registry": {"page_size": 25}, "open_targets": {"page_size": 100}}`)
	site := writeLayer(t, dir, "site.yaml", "registry:\n  page_size: 50\n")

	cfg, err := NewLoader(base, site).Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Registry.PageSize, "later layer wins the contested field")
	assert.Equal(t, 100, cfg.OpenTargets.PageSize, "earlier layer survives where uncontested")
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.json",
		`{"registry": {"base_url": "http://files.test/v2"}}`)

	t.Setenv("DRUGSCOUT_REGISTRY_BASE_URL", "http://env.test/v2")
	t.Setenv("DRUGSCOUT_CACHE_TTL", "1d")
	t.Setenv("DRUGSCOUT_PREFETCH_WORKERS", "9")
	t.Setenv("DRUGSCOUT_HTTP_RATE_LIMIT", "2.5")
	t.Setenv("DRUGSCOUT_STORAGE_BACKEND", "memory")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env.test/v2", cfg.Registry.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.OpenTargets.Cache.TTL)
	assert.Equal(t, 9, cfg.Prefetch.Workers)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoad_MalformedEnvValueFails(t *testing.T) {
	t.Setenv("DRUGSCOUT_HTTP_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "DRUGSCOUT_HTTP_TIMEOUT")
}

func TestLoad_BadDurationStringInLayerFails(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.json", `{"http": {"timeout": "whenever"}}`)

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "whenever")
}

func TestLoad_MisspelledKeyRejected(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.json", `{"registry": {"page_sizee": 5}}`)

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "page_sizee")
}

func TestLoad_WrongTypeRejected(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.yaml", "registry:\n  page_size: many\n")

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoad_ValidationDisabledAcceptsUnknownKeys(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.json", `{"registry": {"page_sizee": 5}}`)

	loader := NewLoader(path)
	loader.EnableValidation(false)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Registry.PageSize, cfg.Registry.PageSize,
		"unknown key is ignored, not applied")
}

func TestLoad_SemanticValidationAfterMerge(t *testing.T) {
	// The document passes the schema; the merged config fails Validate.
	path := writeLayer(t, t.TempDir(), "layer.json",
		`{"storage": {"backend": "nats", "nats": {"bucket": ""}}}`)

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestLoad_MissingLayerFileFails(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.json")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.json")
}

func TestLoadFile_ReplacesLayers(t *testing.T) {
	dir := t.TempDir()
	first := writeLayer(t, dir, "first.json", `{"registry": {"page_size": 11}}`)
	second := writeLayer(t, dir, "second.json", `{"open_targets": {"page_size": 77}}`)

	loader := NewLoader(first)
	cfg, err := loader.LoadFile(second)
	require.NoError(t, err)

	assert.Equal(t, 77, cfg.OpenTargets.PageSize)
	assert.Equal(t, DefaultConfig().Registry.PageSize, cfg.Registry.PageSize,
		"the first layer is no longer consulted")
}

func TestLoad_DaySuffixDurations(t *testing.T) {
	path := writeLayer(t, t.TempDir(), "layer.yaml",
		"open_targets:\n  cache:\n    ttl: 5d\n    cleanup_interval: 1.5d\n")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 120*time.Hour, cfg.OpenTargets.Cache.TTL)
	assert.Equal(t, 36*time.Hour, cfg.OpenTargets.Cache.CleanupInterval)
}

func TestDeepMergeMaps(t *testing.T) {
	base := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"b": "keep",
	}
	override := map[string]any{
		"a": map[string]any{"y": 3},
		"b": nil,
		"c": "new",
	}

	merged := deepMergeMaps(base, override)

	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3},
		"b": "keep",
		"c": "new",
	}, merged)
}

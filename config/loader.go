package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/pkg/dateutil"
)

// envPrefix namespaces the environment overrides.
const envPrefix = "DRUGSCOUT"

// durationKeys are the map keys whose string values are duration
// expressions. Layer documents may write them as "30s" or "5d"; the
// loader converts them to nanoseconds before unmarshaling.
var durationKeys = map[string]bool{
	"timeout":          true,
	"ttl":              true,
	"cleanup_interval": true,
	"initial_delay":    true,
	"max_delay":        true,
	"reconnect_wait":   true,
}

// Loader merges configuration layers over the defaults. Later layers win
// field by field, and environment overrides win over all files.
type Loader struct {
	layers     []string
	validation bool
}

// NewLoader returns a loader over the given layers with validation
// enabled.
func NewLoader(layers ...string) *Loader {
	return &Loader{layers: layers, validation: true}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles schema validation of layer documents and the
// final Validate pass.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads a single file over the defaults, replacing any layers
// added earlier.
func (l *Loader) LoadFile(path string) (Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges all layers over the defaults, applies environment
// overrides, and validates the result.
func (l *Loader) Load() (Config, error) {
	cfg := DefaultConfig()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "config", "Load", "layer "+path)
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return Config{}, errors.Wrap(err, "config", "Load", "merge "+path)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// loadRaw reads one layer document as a key map. JSON and YAML are told
// apart by extension; both use the json-tag key names.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "config", "loadRaw", "parse yaml")
		}
	} else {
		if err := validateJSONDepth(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "config", "loadRaw", "parse json")
		}
	}

	if l.validation {
		if err := validateDocument(raw); err != nil {
			return nil, err
		}
	}

	if err := convertDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// mergeFromMap lays override onto base through a JSON round-trip, so the
// merge sees the same key names the files use.
func mergeFromMap(base Config, override map[string]any) (Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return base, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base, errors.WrapInvalid(err, "config", "merge", "apply layer")
	}
	return merged, nil
}

// deepMergeMaps recursively merges two maps with override precedence.
// Nil override values are skipped so a layer can't blank a section by
// writing null.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// convertDurations rewrites duration strings at known keys to
// nanoseconds. A string that does not parse fails the load; leaving it
// in place would only trade this error for an opaque unmarshal one.
func convertDurations(m map[string]any) error {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			if err := convertDurations(val); err != nil {
				return err
			}
		case string:
			if !durationKeys[k] {
				continue
			}
			d, err := dateutil.ParseDuration(val)
			if err != nil {
				return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "convertDurations",
					fmt.Sprintf("%s: bad duration %q", k, val))
			}
			m[k] = d.Nanoseconds()
		}
	}
	return nil
}

// applyEnvOverrides applies DRUGSCOUT_* variables over the merged
// configuration. Malformed values fail the load rather than being
// silently dropped.
func applyEnvOverrides(cfg *Config) error {
	stringVars := []struct {
		suffix string
		target *string
	}{
		{"HTTP_USER_AGENT", &cfg.HTTP.UserAgent},
		{"STORAGE_BACKEND", &cfg.Storage.Backend},
		{"STORAGE_FILE_DIR", &cfg.Storage.File.BaseDir},
		{"STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path},
		{"STORAGE_NATS_BUCKET", &cfg.Storage.NATS.Bucket},
		{"NATS_URL", &cfg.NATS.URL},
		{"NATS_USERNAME", &cfg.NATS.Username},
		{"NATS_PASSWORD", &cfg.NATS.Password},
		{"NATS_TOKEN", &cfg.NATS.Token},
		{"OPEN_TARGETS_ENDPOINT", &cfg.OpenTargets.Endpoint},
		{"REGISTRY_BASE_URL", &cfg.Registry.BaseURL},
	}
	for _, o := range stringVars {
		if err := overrideString(o.suffix, o.target); err != nil {
			return err
		}
	}

	if err := overrideDuration("HTTP_TIMEOUT", &cfg.HTTP.Timeout); err != nil {
		return err
	}
	if err := overrideDuration("CACHE_TTL", &cfg.OpenTargets.Cache.TTL); err != nil {
		return err
	}
	if err := overrideFloat("HTTP_RATE_LIMIT", &cfg.HTTP.RateLimit); err != nil {
		return err
	}
	return overrideInt("PREFETCH_WORKERS", &cfg.Prefetch.Workers)
}

// envValue reads one override, rejecting values that fail the length and
// byte checks. Unset and empty both come back as "".
func envValue(suffix string) (string, error) {
	val := os.Getenv(envPrefix + "_" + suffix)
	if val == "" {
		return "", nil
	}
	if err := validateEnvVar(val); err != nil {
		return "", errors.WrapInvalid(err, "config", "env", envPrefix+"_"+suffix)
	}
	return val, nil
}

func overrideString(suffix string, target *string) error {
	val, err := envValue(suffix)
	if err != nil || val == "" {
		return err
	}
	*target = val
	return nil
}

func overrideDuration(suffix string, target *time.Duration) error {
	val, err := envValue(suffix)
	if err != nil || val == "" {
		return err
	}
	d, err := dateutil.ParseDuration(val)
	if err != nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "env",
			fmt.Sprintf("%s_%s: bad duration %q", envPrefix, suffix, val))
	}
	*target = d
	return nil
}

func overrideFloat(suffix string, target *float64) error {
	val, err := envValue(suffix)
	if err != nil || val == "" {
		return err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "env",
			fmt.Sprintf("%s_%s: bad number %q", envPrefix, suffix, val))
	}
	*target = f
	return nil
}

func overrideInt(suffix string, target *int) error {
	val, err := envValue(suffix)
	if err != nil || val == "" {
		return err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "env",
			fmt.Sprintf("%s_%s: bad integer %q", envPrefix, suffix, val))
	}
	*target = n
	return nil
}

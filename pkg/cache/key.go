package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key builds the canonical cache key for a namespace and request parameters.
//
// The namespace and parameters are merged into one JSON object and hashed
// with SHA-256. encoding/json emits map keys in sorted order, so two
// parameter maps with equal contents produce the same key regardless of how
// they were assembled. The hex digest is safe to use as a filename, SQLite
// key, or NATS key-value key.
//
// A "namespace" parameter inside params overrides the namespace argument;
// callers own their parameter names and none uses that one.
func Key(namespace string, params map[string]any) string {
	merged := make(map[string]any, len(params)+1)
	merged["namespace"] = namespace
	for k, v := range params {
		merged[k] = v
	}

	canonical, err := json.Marshal(merged)
	if err != nil {
		// Unencodable values (channels, functions) still need a stable
		// key, so coerce everything to its string form and retry.
		coerced := make(map[string]string, len(merged))
		for k, v := range merged {
			coerced[k] = fmt.Sprint(v)
		}
		canonical, _ = json.Marshal(coerced)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

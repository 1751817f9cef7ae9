package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/drugscout/errors"
)

// Limits on configuration inputs.
const (
	// maxConfigSize caps a single layer file.
	maxConfigSize = 10 * 1024 * 1024

	// maxJSONDepth caps bracket nesting in JSON layers.
	maxJSONDepth = 100

	// maxEnvVarLen caps a single environment override value.
	maxEnvVarLen = 10000

	// maxPathLen caps a layer path.
	maxPathLen = 4096
)

// validateConfigPath rejects path shapes that should never reach the
// loader: traversal segments, null bytes, and extensions other than the
// supported formats.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "validateConfigPath", "path is required")
	}
	if len(path) > maxPathLen {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateConfigPath",
			fmt.Sprintf("path exceeds %d characters", maxPathLen))
	}
	if strings.ContainsRune(path, 0) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateConfigPath",
			"path contains a null byte")
	}

	clean := filepath.Clean(path)
	for _, part := range strings.Split(clean, string(filepath.Separator)) {
		if part == ".." {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateConfigPath",
				fmt.Sprintf("path %q contains a traversal segment", path))
		}
	}

	switch strings.ToLower(filepath.Ext(clean)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateConfigPath",
			fmt.Sprintf("unsupported config extension %q", filepath.Ext(clean)))
	}
}

// safeReadFile validates the path, checks the file is regular and under
// the size cap, and reads it.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "safeReadFile", "stat config file")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "safeReadFile",
			fmt.Sprintf("%s is not a regular file", path))
	}
	if info.Size() > maxConfigSize {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "safeReadFile",
			fmt.Sprintf("config file exceeds %d bytes", maxConfigSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "safeReadFile", "read config file")
	}
	return data, nil
}

// safeWriteFile validates the path, creates the parent directory, and
// writes owner-only. Rendered configs can carry credentials.
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "config", "safeWriteFile", "create config directory")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "config", "safeWriteFile", "write config file")
	}
	return nil
}

// validateJSONDepth walks the raw bytes counting bracket nesting, aware
// of string and escape state, and rejects documents nested deeper than
// maxJSONDepth before they reach the parser.
func validateJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		if escaped {
			escaped = false
			continue
		}
		switch b {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
				if depth > maxJSONDepth {
					return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateJSONDepth",
						fmt.Sprintf("nesting exceeds %d levels", maxJSONDepth))
				}
			}
		case '}', ']':
			if !inString {
				depth--
			}
		}
	}
	return nil
}

// validateEnvVar bounds an override value.
func validateEnvVar(val string) error {
	if len(val) > maxEnvVarLen {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateEnvVar",
			fmt.Sprintf("value exceeds %d characters", maxEnvVarLen))
	}
	if strings.ContainsRune(val, 0) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateEnvVar",
			"value contains a null byte")
	}
	return nil
}

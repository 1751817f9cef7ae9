package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/drugscout/errors"
)

//go:embed schema.json
var schemaJSON []byte

// validateDocument checks one layer document against the embedded schema.
// Layers may be partial, so the schema rejects unknown keys and wrong
// types, not missing sections.
func validateDocument(doc map[string]any) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateDocument", "encode document")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(docJSON),
	)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateDocument", "run schema")
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateDocument",
		strings.Join(details, "; "))
}

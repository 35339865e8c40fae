package policyapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaFS embed.FS

const schemaResourceName = "policies.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := schemaFS.ReadFile("schema.json")
		if err != nil {
			compileErr = fmt.Errorf("policyapi: reading embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaResourceName, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("policyapi: adding schema resource: %w", err)
			return
		}
		s, err := c.Compile(schemaResourceName)
		if err != nil {
			compileErr = fmt.Errorf("policyapi: compiling schema: %w", err)
			return
		}
		compiled = s
	})
	return compiled, compileErr
}

// Validate checks raw Control Plane response bytes against the policies
// JSON Schema. It reports every structural violation the validator found,
// flattened into one error message; it does not
// validate regex syntax or duration grammar, which are load-time
// degradations handled by pkg/config rather than hard rejections.
func Validate(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("policyapi: invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("policyapi: schema validation failed: %s", formatValidationError(verr))
		}
		return fmt.Errorf("policyapi: schema validation failed: %w", err)
	}
	return nil
}

// formatValidationError flattens a jsonschema.ValidationError's Causes tree
// into a single readable line, keeping only the deepest (most specific)
// messages.
func formatValidationError(verr *jsonschema.ValidationError) string {
	if len(verr.Causes) == 0 {
		return fmt.Sprintf("%s: %s", verr.InstanceLocation, verr.Message)
	}
	msgs := make([]string, 0, len(verr.Causes))
	for _, cause := range verr.Causes {
		msgs = append(msgs, formatValidationError(cause))
	}
	return fmt.Sprintf("%v", msgs)
}

// ParseAndValidate validates raw bytes against the schema, then unmarshals
// into a Policies value. Schema validation runs first so callers see a
// structural error rather than a field-level Go unmarshal error for
// malformed payloads.
func ParseAndValidate(raw []byte) (*Policies, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var p Policies
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("policyapi: decoding policies: %w", err)
	}
	return &p, nil
}

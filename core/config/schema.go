package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator validates JSON documents against one compiled schema.
type SchemaValidator struct {
	name   string
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles a Draft 2020-12 schema. References are
// resolved only within the schema itself; no files or URLs are loaded.
func NewSchemaValidator(name, schemaJSON string) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external $ref not allowed: %s", url)
	}

	url := "schema://" + name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add %s schema: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return &SchemaValidator{name: name, schema: schema}, nil
}

// MustSchemaValidator is NewSchemaValidator for package-level schemas.
func MustSchemaValidator(name, schemaJSON string) *SchemaValidator {
	v, err := NewSchemaValidator(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate decodes data as JSON and checks it against the schema.
func (v *SchemaValidator) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", v.name, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", v.name, err)
	}
	return nil
}

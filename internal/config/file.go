package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaText string

var schema = jsonschema.MustCompileString("schema.json", schemaText)

// LoadFile reads a YAML config file. The document is checked against the
// embedded schema before it is decoded, so unknown keys and out-of-range
// values are reported with their path.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML config document.
func Parse(raw []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// The schema validator wants JSON values; round-trip the YAML tree.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

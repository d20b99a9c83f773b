// Package config holds the settings consumed by the id resolution and scope
// machinery: the compatibility version (which selects the section policy and
// id normalization rules), the generated-id length cap and the template
// recursion ceiling.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aledsdavies/quire/core/errors"
)

// Defaults.
const (
	DefaultMaxIDLength      = 32
	DefaultMaxTemplateDepth = 100
	DefaultSourceMode       = "c++"
)

// Config is the resolved configuration for one compilation.
type Config struct {
	// CompatibilityVersion overrides the version documents declare for
	// id generation. Zero means "use the document's own version".
	CompatibilityVersion Version
	MaxIDLength          int
	MaxTemplateDepth     int
	SourceMode           string
	Debug                bool
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxIDLength:      DefaultMaxIDLength,
		MaxTemplateDepth: DefaultMaxTemplateDepth,
		SourceMode:       DefaultSourceMode,
	}
}

// fileConfig is the on-disk JSON shape.
type fileConfig struct {
	CompatibilityVersion string `json:"compatibility_version"`
	MaxIDLength          *int   `json:"max_id_length"`
	MaxTemplateDepth     *int   `json:"max_template_depth"`
	SourceMode           string `json:"source_mode"`
	Debug                bool   `json:"debug"`
}

const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "compatibility_version": {"type": "string", "pattern": "^v?[0-9]+(\\.[0-9]+){0,2}$"},
    "max_id_length": {"type": "integer", "minimum": 4, "maximum": 1024},
    "max_template_depth": {"type": "integer", "minimum": 1, "maximum": 100000},
    "source_mode": {"type": "string", "minLength": 1},
    "debug": {"type": "boolean"}
  }
}`

var configValidator = MustSchemaValidator("config", configSchema)

// Load reads a JSON config file and layers it over Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewInputError(path, "could not read config file", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrConfigInvalid, "invalid config", err).
			WithContext("file", path)
	}
	return cfg, nil
}

// Parse validates and decodes a JSON config document.
func Parse(data []byte) (Config, error) {
	if err := configValidator.Validate(data); err != nil {
		return Config{}, err
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg := Default()
	if fc.CompatibilityVersion != "" {
		v, err := ParseVersion(fc.CompatibilityVersion)
		if err != nil {
			return Config{}, fmt.Errorf("compatibility_version: %w", err)
		}
		cfg.CompatibilityVersion = v
	}
	if fc.MaxIDLength != nil {
		cfg.MaxIDLength = *fc.MaxIDLength
	}
	if fc.MaxTemplateDepth != nil {
		cfg.MaxTemplateDepth = *fc.MaxTemplateDepth
	}
	if fc.SourceMode != "" {
		cfg.SourceMode = fc.SourceMode
	}
	cfg.Debug = fc.Debug
	return cfg, cfg.Validate()
}

// Validate checks values that may also have come from flags.
func (c Config) Validate() error {
	if c.MaxIDLength < 4 {
		return fmt.Errorf("max id length must be at least 4, got %d", c.MaxIDLength)
	}
	if c.MaxTemplateDepth < 1 {
		return fmt.Errorf("max template depth must be positive, got %d", c.MaxTemplateDepth)
	}
	if c.SourceMode == "" {
		return fmt.Errorf("source mode must not be empty")
	}
	return nil
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file, applies defaults and validates it.
// Errors wrap ErrConfiguration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfiguration, path, err)
	}
	cfg, err := Parse(data, Format(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Format returns the decoder name for path: "yaml", "json" or "toml".
// Unknown extensions are treated as YAML.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// Parse decodes data in the given format, applies defaults and validates.
func Parse(data []byte, format string) (*Config, error) {
	var cfg Config
	if err := Decode(data, format, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode decodes data in format into v. Unknown fields are rejected for
// JSON and YAML; TOML reports undecoded keys.
func Decode(data []byte, format string, v any) error {
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: decode json: %w", ErrConfiguration, err)
		}
	case "toml":
		meta, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("%w: decode toml: %w", ErrConfiguration, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return fmt.Errorf("%w: decode toml: unknown keys: %s",
				ErrConfiguration, strings.Join(keys, ", "))
		}
	case "yaml", "":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: decode yaml: %w", ErrConfiguration, err)
		}
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrConfiguration, format)
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration that decodes from a Go duration string.
// It implements encoding.TextUnmarshaler so the same value works in YAML,
// JSON and TOML files.
type Duration time.Duration

// UnmarshalText parses s with time.ParseDuration. An empty string is zero.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration in time.Duration.String form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

package sandbox

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/agent"
	"github.com/jonwraymond/toolgen/config"
)

// Config holds the configuration for a Sandbox.
type Config struct {
	// Agent is the tool surface injected as package "agent". Required.
	Agent agent.Agent

	// AllowList is the restricted tier's capability set.
	// Defaults to DefaultAllowList.
	AllowList AllowList

	// Timeout bounds one run. Defaults to config.DefaultSandboxTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr each.
	// Defaults to config.DefaultMaxOutputBytes.
	MaxOutputBytes int

	// MaxToolCalls caps tool calls per run. Zero means unlimited.
	MaxToolCalls int

	// Logger is an optional logger.
	Logger *zap.Logger
}

// Validate checks that all required fields are set and the allow list is
// usable. Returns config.ErrConfiguration otherwise.
func (c *Config) Validate() error {
	var missing []string
	if c.Agent == nil {
		missing = append(missing, "Agent")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			config.ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.MaxToolCalls < 0 {
		return fmt.Errorf("%w: max tool calls must not be negative", config.ErrConfiguration)
	}
	if c.AllowList != nil {
		return c.AllowList.Validate()
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AllowList == nil {
		c.AllowList = DefaultAllowList()
	}
	if c.Timeout <= 0 {
		c.Timeout = config.DefaultSandboxTimeout
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = config.DefaultMaxOutputBytes
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// ConfigFrom maps the launch configuration's sandbox section onto a Config.
func ConfigFrom(s config.Sandbox, a agent.Agent, logger *zap.Logger) Config {
	return Config{
		Agent:          a,
		Timeout:        s.Timeout.Std(),
		MaxOutputBytes: s.MaxOutputBytes,
		MaxToolCalls:   s.MaxToolCalls,
		Logger:         logger,
	}
}

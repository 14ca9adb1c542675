package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultStartupGrace    = time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultCallTimeout     = 30 * time.Second
	DefaultSandboxTimeout  = 30 * time.Second
	DefaultMaxOutputBytes  = 256 * 1024
	DefaultMaxTokens       = 4096
	DefaultProvider        = "gemini"
	DefaultTier            = "restricted"
)

// Config is the top-level launch configuration.
type Config struct {
	// MockMode bypasses all process and protocol behavior.
	MockMode bool `yaml:"mock_mode" json:"mock_mode" toml:"mock_mode"`

	// Servers lists the tool servers that may be launched, by unique name.
	Servers []Server `yaml:"servers" json:"servers" toml:"servers"`

	// Catalog is the path of the tool catalog (file or metadata directory).
	Catalog string `yaml:"catalog" json:"catalog" toml:"catalog"`

	// History is the path of the SQLite run history. Empty disables it.
	History string `yaml:"history" json:"history" toml:"history"`

	Generator Generator `yaml:"generator" json:"generator" toml:"generator"`
	Sandbox   Sandbox   `yaml:"sandbox" json:"sandbox" toml:"sandbox"`
	Peers     Peers     `yaml:"peers" json:"peers" toml:"peers"`
}

// Generator configures the generation backend.
type Generator struct {
	// Provider selects the backend: "gemini" or "static".
	Provider string `yaml:"provider" json:"provider" toml:"provider"`

	// Model is the backend model name.
	Model string `yaml:"model" json:"model" toml:"model"`

	// APIKey may be a literal or a ${NAME} placeholder.
	APIKey string `yaml:"api_key" json:"api_key" toml:"api_key"`

	// MaxTokens is the response-size ceiling passed to the backend.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" toml:"max_tokens"`

	// ResponseFile is the canned reply used by the "static" provider.
	ResponseFile string `yaml:"response_file" json:"response_file" toml:"response_file"`
}

// Sandbox configures generated code execution.
type Sandbox struct {
	Timeout        Duration `yaml:"timeout" json:"timeout" toml:"timeout"`
	Tier           string   `yaml:"tier" json:"tier" toml:"tier"`
	MaxOutputBytes int      `yaml:"max_output_bytes" json:"max_output_bytes" toml:"max_output_bytes"`
	MaxToolCalls   int      `yaml:"max_tool_calls" json:"max_tool_calls" toml:"max_tool_calls"`
}

// Peers configures process lifecycle and call timing.
type Peers struct {
	StartupGrace    Duration `yaml:"startup_grace" json:"startup_grace" toml:"startup_grace"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" toml:"shutdown_timeout"`
	CallTimeout     Duration `yaml:"call_timeout" json:"call_timeout" toml:"call_timeout"`
}

// Default returns a configuration with every default applied and no servers.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults sets default values for unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Generator.Provider == "" {
		c.Generator.Provider = DefaultProvider
	}
	if c.Generator.MaxTokens == 0 {
		c.Generator.MaxTokens = DefaultMaxTokens
	}
	if c.Sandbox.Timeout == 0 {
		c.Sandbox.Timeout = Duration(DefaultSandboxTimeout)
	}
	if c.Sandbox.Tier == "" {
		c.Sandbox.Tier = DefaultTier
	}
	if c.Sandbox.MaxOutputBytes == 0 {
		c.Sandbox.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.Peers.StartupGrace == 0 {
		c.Peers.StartupGrace = Duration(DefaultStartupGrace)
	}
	if c.Peers.ShutdownTimeout == 0 {
		c.Peers.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Peers.CallTimeout == 0 {
		c.Peers.CallTimeout = Duration(DefaultCallTimeout)
	}
}

// Validate checks server entries and enumerated settings.
// Returns ErrConfiguration describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		name := strings.TrimSpace(s.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("servers[%d]: name is required", i))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("servers[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(s.Command) == "" {
			problems = append(problems, fmt.Sprintf("servers[%d]: command is required", i))
		}
	}

	switch c.Sandbox.Tier {
	case "", "restricted", "unrestricted":
	default:
		problems = append(problems, fmt.Sprintf("sandbox.tier: unknown tier %q", c.Sandbox.Tier))
	}
	switch c.Generator.Provider {
	case "", "gemini", "static":
	default:
		problems = append(problems, fmt.Sprintf("generator.provider: unknown provider %q", c.Generator.Provider))
	}
	if c.Generator.MaxTokens < 0 {
		problems = append(problems, "generator.max_tokens: must not be negative")
	} else if c.Generator.MaxTokens > math.MaxInt32 {
		problems = append(problems, fmt.Sprintf("generator.max_tokens: must not exceed %d", math.MaxInt32))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Server returns the launch entry for name. The returned pointer refers to
// a copy; callers may not mutate the configuration through it.
func (c *Config) Server(name string) (*Server, bool) {
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			s := c.Servers[i]
			return &s, true
		}
	}
	return nil, false
}

// ServerNames returns configured server names in file order.
func (c *Config) ServerNames() []string {
	out := make([]string, 0, len(c.Servers))
	for _, s := range c.Servers {
		out = append(out, s.Name)
	}
	return out
}

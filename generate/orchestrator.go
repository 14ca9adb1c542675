package generate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/relevance"
)

// Config holds the configuration for an Orchestrator.
type Config struct {
	// Catalog is searched for tools relevant to each request. Required.
	Catalog *catalog.Catalog

	// Backend produces replies. Required.
	Backend Backend

	// MaxTokens bounds each reply. Defaults to config.DefaultMaxTokens.
	MaxTokens int

	// Logger is an optional logger.
	Logger *zap.Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Catalog == nil {
		missing = append(missing, "Catalog")
	}
	if c.Backend == nil {
		missing = append(missing, "Backend")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			config.ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.MaxTokens < 0 || c.MaxTokens > math.MaxInt32 {
		return fmt.Errorf("%w: max tokens must be between 0 and %d", config.ErrConfiguration, math.MaxInt32)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = config.DefaultMaxTokens
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Orchestrator generates code units for natural-language requests.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Orchestrator{cfg: cfg, logger: cfg.Logger.Named("generate")}, nil
}

// Prompt returns the prompt Generate would send for query.
func (o *Orchestrator) Prompt(query, contextText string) (string, error) {
	tools := relevance.SearchByKeywords(o.cfg.Catalog, query)
	return BuildPrompt(query, tools, o.cfg.Catalog, contextText)
}

// Generate asks the backend for code that fulfils query. contextText is
// appended to the prompt as additional context. The only error is a
// backend failure (ErrBackend); an unparseable reply yields a Degraded
// result instead.
func (o *Orchestrator) Generate(ctx context.Context, query, contextText string) (ParseResult, error) {
	tools := relevance.SearchByKeywords(o.cfg.Catalog, query)
	prompt, err := BuildPrompt(query, tools, o.cfg.Catalog, contextText)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("prompt built",
		zap.String("query", query),
		zap.Int("tools", len(tools)),
		zap.Int("prompt_bytes", len(prompt)))

	text, err := o.cfg.Backend.Generate(ctx, prompt, o.cfg.MaxTokens)
	if err != nil {
		return nil, &BackendError{Backend: backendName(o.cfg.Backend), Err: err}
	}

	res := ParseResponse(text)
	switch r := res.(type) {
	case Degraded:
		o.logger.Warn("reply not parsed", zap.String("reason", r.Reason))
	case Parsed:
		if len(r.Skipped) > 0 {
			o.logger.Debug("skipped unreadable required tools", zap.Strings("entries", r.Skipped))
		}
	}
	return res, nil
}

func backendName(b Backend) string {
	switch b.(type) {
	case *Gemini:
		return "gemini"
	case Static, *Static:
		return "static"
	default:
		return fmt.Sprintf("%T", b)
	}
}

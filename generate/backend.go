package generate

import (
	"context"
	"fmt"
	"math"
	"os"

	"google.golang.org/genai"

	"github.com/jonwraymond/toolgen/config"
)

// DefaultGeminiModel is the model Gemini uses when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Backend produces a textual reply for a prompt.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must honor cancellation and deadlines.
// - Errors: a returned error means no reply exists; partial replies are
// returned as text.
type Backend interface {
	// Generate returns the reply to prompt, bounded by maxTokens.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Static returns the same reply for every prompt.
type Static struct {
	Reply string
}

// Generate returns s.Reply, or ctx.Err() when ctx is already done.
func (s Static) Generate(ctx context.Context, _ string, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Reply, nil
}

// NewStaticFile returns a Static backend replying with the contents of
// path.
func NewStaticFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Static{}, fmt.Errorf("%w: response file: %v", config.ErrConfiguration, err)
	}
	return Static{Reply: string(data)}, nil
}

// Gemini generates replies with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend. An empty model selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", config.ErrConfiguration)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// outputTokens converts maxTokens to the API's limit. Values above the
// int32 range are clamped; zero or less leaves the limit unset.
func outputTokens(maxTokens int) int32 {
	switch {
	case maxTokens <= 0:
		return 0
	case maxTokens > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(maxTokens)
}

// Model returns the model name.
func (g *Gemini) Model() string { return g.model }

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: outputTokens(maxTokens)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model %s returned no text", g.model)
	}
	return text, nil
}

// NewBackend builds the backend selected by the launch configuration.
// Placeholders in the API key resolve through lookup.
func NewBackend(ctx context.Context, cfg config.Generator, lookup func(string) (string, bool)) (Backend, error) {
	switch cfg.Provider {
	case "static":
		if cfg.ResponseFile == "" {
			return nil, fmt.Errorf("%w: static provider needs response_file", config.ErrConfiguration)
		}
		return NewStaticFile(cfg.ResponseFile)
	case "", config.DefaultProvider:
		return NewGemini(ctx, config.ExpandValue(cfg.APIKey, lookup), cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfiguration, cfg.Provider)
	}
}

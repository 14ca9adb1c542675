package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"go.uber.org/zap"

	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/protocol"
	"github.com/jonwraymond/toolgen/relevance"
)

// ErrUnknownTool is returned by Describe and Execute for a tool the catalog
// does not list.
var ErrUnknownTool = errors.New("unknown tool")

// CategoryInfo summarizes one category of a server.
type CategoryInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	ToolCount   int      `json:"tool_count"`
}

// ToolInfo describes one tool.
type ToolInfo struct {
	Server      string         `json:"server"`
	Category    string         `json:"category"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Keywords    []string       `json:"keywords,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Doc is the documentation of one tool.
type Doc struct {
	ToolInfo
	FullName string `json:"full_name"`
	Summary  string `json:"summary"`
	Notes    string `json:"notes,omitempty"`
}

// Agent is the surface generated code uses to find and run tools.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Execute and Call honor ctx; browsing methods return ctx.Err()
// when ctx is already done.
// - Errors: Execute and Call propagate the Caller's errors unchanged
// (protocol.ErrRemoteTool, protocol.ErrTimeout, ...).
// - Ownership: returned slices and maps belong to the caller.
type Agent interface {
	// Servers returns server names in catalog order.
	Servers(ctx context.Context) ([]string, error)

	// Categories returns the categories of server.
	Categories(ctx context.Context, server string) ([]CategoryInfo, error)

	// Tools returns the tools of one category.
	Tools(ctx context.Context, server, category string) ([]ToolInfo, error)

	// Search returns tools whose name, description or a keyword contains
	// query as one case-insensitive substring. The query is not split into
	// words. Results follow catalog order, or BM25 score when a Ranker is
	// configured, and are capped at the search limit.
	Search(ctx context.Context, query string) ([]ToolInfo, error)

	// Describe documents one tool.
	Describe(ctx context.Context, server, category, tool string) (Doc, error)

	// Tree renders server (or every server when empty) as a text tree.
	Tree(ctx context.Context, server string) (string, error)

	// Execute calls a catalog tool with params.
	Execute(ctx context.Context, server, category, tool string, params map[string]any) (map[string]any, error)

	// Call invokes a peer-facing tool name on server directly.
	Call(ctx context.Context, server, fullName string, args map[string]any) (map[string]any, error)
}

// Caller performs tool calls. *protocol.Client implements it.
type Caller interface {
	Call(ctx context.Context, server, tool string, args map[string]any) (protocol.Result, error)
}

// Config configures New.
type Config struct {
	// Catalog lists the tools the agent can see. Required.
	Catalog *catalog.Catalog

	// Caller runs tools. Required.
	Caller Caller

	// Ranker, when set, orders Search results by BM25 score. It must be
	// built over Catalog.
	Ranker *relevance.Ranker

	// Docs, when set, supplies Describe summaries and notes.
	Docs tooldoc.Store

	// SearchLimit caps Search results. Defaults to
	// relevance.MaxKeywordResults.
	SearchLimit int

	// Logger is an optional logger.
	Logger *zap.Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Catalog == nil {
		missing = append(missing, "Catalog")
	}
	if c.Caller == nil {
		missing = append(missing, "Caller")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			config.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SearchLimit <= 0 {
		c.SearchLimit = relevance.MaxKeywordResults
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type agent struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an Agent backed by a catalog and a Caller.
func New(cfg Config) (Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &agent{cfg: cfg, logger: cfg.Logger.Named("agent")}, nil
}

func (a *agent) Servers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.cfg.Catalog.ServerNames(), nil
}

func (a *agent) Categories(ctx context.Context, server string) ([]CategoryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats, err := a.cfg.Catalog.Categories(server)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryInfo{
			Name:        c.Name,
			Description: c.Description,
			Keywords:    c.Keywords,
			ToolCount:   len(c.Tools),
		})
	}
	return out, nil
}

func (a *agent) Tools(ctx context.Context, server, category string) ([]ToolInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tools, err := a.cfg.Catalog.Tools(server, category)
	if err != nil {
		return nil, err
	}
	return toolInfos(tools), nil
}

func (a *agent) Search(ctx context.Context, query string) ([]ToolInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tools := relevance.Search(a.cfg.Catalog, query)
	if a.cfg.Ranker != nil {
		ranked, err := a.cfg.Ranker.Order(query, tools, a.cfg.SearchLimit)
		if err != nil {
			return nil, err
		}
		return toolInfos(ranked), nil
	}
	if len(tools) > a.cfg.SearchLimit {
		tools = tools[:a.cfg.SearchLimit]
	}
	return toolInfos(tools), nil
}

func (a *agent) Describe(ctx context.Context, server, category, tool string) (Doc, error) {
	if err := ctx.Err(); err != nil {
		return Doc{}, err
	}
	t, ok := a.cfg.Catalog.Lookup(server, category, tool)
	if !ok {
		return Doc{}, fmt.Errorf("%w: %s/%s/%s", ErrUnknownTool, server, category, tool)
	}
	doc := Doc{ToolInfo: toolInfo(t), FullName: t.FullName(), Summary: t.Description}
	if a.cfg.Docs != nil {
		td, err := a.cfg.Docs.DescribeTool(catalog.IndexID(t), tooldoc.DetailFull)
		if err != nil {
			a.logger.Debug("tool doc lookup failed", zap.String("tool", t.Ref().String()), zap.Error(err))
		} else {
			if td.Summary != "" {
				doc.Summary = td.Summary
			}
			doc.Notes = td.Notes
		}
	}
	return doc, nil
}

func (a *agent) Tree(ctx context.Context, server string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.cfg.Catalog.Tree(server)
}

func (a *agent) Execute(ctx context.Context, server, category, tool string, params map[string]any) (map[string]any, error) {
	if _, ok := a.cfg.Catalog.Lookup(server, category, tool); !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrUnknownTool, server, category, tool)
	}
	return a.Call(ctx, server, protocol.ToolName(server, category, tool), params)
}

func (a *agent) Call(ctx context.Context, server, fullName string, args map[string]any) (map[string]any, error) {
	start := time.Now()
	res, err := a.cfg.Caller.Call(ctx, server, fullName, args)
	a.logger.Debug("tool call",
		zap.String("server", server),
		zap.String("tool", fullName),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, err
	}
	return map[string]any(res), nil
}

func toolInfo(t catalog.Tool) ToolInfo {
	return ToolInfo{
		Server:      t.Server,
		Category:    t.Category,
		Name:        t.Name,
		Description: t.Description,
		Keywords:    t.Keywords,
		InputSchema: t.InputSchema,
	}
}

func toolInfos(tools []catalog.Tool) []ToolInfo {
	out := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo(t))
	}
	return out
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolgen/config"
)

// ClientName and ClientVersion identify toolgen during the MCP handshake.
const (
	ClientName    = "toolgen"
	ClientVersion = "0.1.0"
)

// Discover lists every tool of one MCP server reachable over transport.
// It performs the initialize handshake, follows list cursors, and closes
// the session before returning.
func Discover(ctx context.Context, transport mcp.Transport) ([]*mcp.Tool, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: ClientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	var tools []*mcp.Tool
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// DiscoverServer launches srv as a stdio MCP server and lists its tools.
// Env placeholders are resolved with lookup (os.LookupEnv when nil).
func DiscoverServer(ctx context.Context, srv config.Server, lookup func(string) (string, bool)) ([]*mcp.Tool, error) {
	if srv.Command == "" {
		return nil, fmt.Errorf("%w: server %q has no command", config.ErrConfiguration, srv.Name)
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cmd := exec.Command(srv.Command, srv.Args...)
	cmd.Dir = srv.Dir
	cmd.Env = config.MergeEnv(os.Environ(), srv.ResolveEnv(lookup))
	return Discover(ctx, &mcp.CommandTransport{Command: cmd})
}

// DiscoverOptions configures DiscoverAll.
type DiscoverOptions struct {
	// Categorizer groups each server's tools. Defaults to DefaultRules.
	Categorizer *Categorizer

	// Concurrency bounds parallel server launches. Defaults to 4.
	Concurrency int

	// Logger is an optional logger.
	Logger *zap.Logger

	// LookupEnv resolves env placeholders. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// discover replaces DiscoverServer in tests.
	discover func(context.Context, config.Server) ([]*mcp.Tool, error)
}

// DiscoverAll lists and categorizes the tools of every configured server.
// Servers that fail are logged and left out, so one broken server does not
// hide the rest. The result keeps configuration order.
func DiscoverAll(ctx context.Context, servers []config.Server, opts DiscoverOptions) (*Catalog, error) {
	if opts.Categorizer == nil {
		c, err := NewCategorizer(DefaultRules(), DefaultCategory)
		if err != nil {
			return nil, err
		}
		opts.Categorizer = c
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.discover == nil {
		opts.discover = func(ctx context.Context, s config.Server) ([]*mcp.Tool, error) {
			return DiscoverServer(ctx, s, opts.LookupEnv)
		}
	}
	logger := opts.Logger.Named("discover")

	results := make([]*Server, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, s := range servers {
		g.Go(func() error {
			tools, err := opts.discover(gctx, s)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("server discovery failed", zap.String("server", s.Name), zap.Error(err))
				return nil
			}
			srv := opts.Categorizer.Categorize(s.Name, tools)
			logger.Info("server discovered",
				zap.String("server", s.Name),
				zap.Int("tools", len(tools)),
				zap.Int("categories", len(srv.Categories)))
			results[i] = &srv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Server, 0, len(servers))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return New(out...)
}

// remarshal copies v into out through JSON.
func remarshal(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

package sandbox

import (
	"context"
	"errors"
	"sync"

	"github.com/jonwraymond/toolgen/agent"
)

// mockAgent implements agent.Agent for testing.
type mockAgent struct {
	mu sync.Mutex

	executeErr error
	executes   []executeCall
}

type executeCall struct {
	server, category, tool string
	params                 map[string]any
}

func (m *mockAgent) Servers(ctx context.Context) ([]string, error) {
	return []string{"github", "slack"}, ctx.Err()
}

func (m *mockAgent) Categories(_ context.Context, server string) ([]agent.CategoryInfo, error) {
	if server != "github" {
		return nil, errors.New("not found")
	}
	return []agent.CategoryInfo{{Name: "repos", ToolCount: 2}}, nil
}

func (m *mockAgent) Tools(_ context.Context, server, category string) ([]agent.ToolInfo, error) {
	return []agent.ToolInfo{{Server: server, Category: category, Name: "list"}}, nil
}

func (m *mockAgent) Search(_ context.Context, query string) ([]agent.ToolInfo, error) {
	return []agent.ToolInfo{{Server: "github", Category: "repos", Name: query}}, nil
}

func (m *mockAgent) Describe(_ context.Context, server, category, tool string) (agent.Doc, error) {
	return agent.Doc{ToolInfo: agent.ToolInfo{Server: server, Category: category, Name: tool}, Summary: "docs"}, nil
}

func (m *mockAgent) Tree(_ context.Context, server string) (string, error) {
	return server + "/", nil
}

func (m *mockAgent) Execute(_ context.Context, server, category, tool string, params map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executes = append(m.executes, executeCall{server, category, tool, params})
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	return map[string]any{"ok": true, "tool": tool}, nil
}

func (m *mockAgent) Call(_ context.Context, server, fullName string, args map[string]any) (map[string]any, error) {
	return map[string]any{"called": fullName}, nil
}

func newTestSandbox(t interface {
	Helper()
	Fatalf(string, ...any)
}, cfg Config) *Sandbox {
	t.Helper()
	if cfg.Agent == nil {
		cfg.Agent = &mockAgent{}
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/protocol"
)

// ErrNotFound is returned when a server, category or tool does not exist.
var ErrNotFound = errors.New("not found")

// ToolRef identifies a tool by server, category and simple name.
type ToolRef struct {
	Server   string `json:"server" yaml:"server"`
	Category string `json:"category" yaml:"category"`
	Tool     string `json:"tool" yaml:"tool"`
}

// String renders the reference as server/category/tool.
func (r ToolRef) String() string {
	return r.Server + "/" + r.Category + "/" + r.Tool
}

// Tool describes one callable tool.
type Tool struct {
	Server      string         `json:"server" yaml:"server"`
	Category    string         `json:"category" yaml:"category"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	Keywords    []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Ref returns the tool's identity.
func (t Tool) Ref() ToolRef {
	return ToolRef{Server: t.Server, Category: t.Category, Tool: t.Name}
}

// FullName returns the peer-facing tool name.
func (t Tool) FullName() string {
	return protocol.ToolName(t.Server, t.Category, t.Name)
}

// Category groups related tools of one server.
type Category struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Tools       []Tool   `json:"tools" yaml:"tools"`
}

// Server is one tool server and its categories.
type Server struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Categories  []Category `json:"categories" yaml:"categories"`
}

// ToolCount returns the number of tools across all categories.
func (s Server) ToolCount() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Tools)
	}
	return n
}

// Catalog is an ordered, immutable set of servers.
//
// Contract:
// - Concurrency: safe for concurrent reads; nothing mutates a built catalog.
// - Ownership: returned slices are copies; callers may modify them.
type Catalog struct {
	servers []Server
}

// New builds a catalog from servers. Each tool's Server and Category fields
// are set from its position. Names must be non-empty and unique at every
// level; violations wrap config.ErrConfiguration.
func New(servers ...Server) (*Catalog, error) {
	var problems []string
	seenServer := make(map[string]bool, len(servers))
	out := make([]Server, 0, len(servers))

	for si, s := range servers {
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, fmt.Sprintf("servers[%d]: name is required", si))
		} else if seenServer[s.Name] {
			problems = append(problems, fmt.Sprintf("server %q: duplicate", s.Name))
		}
		seenServer[s.Name] = true

		srv := Server{Name: s.Name, Description: s.Description}
		seenCat := make(map[string]bool, len(s.Categories))
		for ci, c := range s.Categories {
			if strings.TrimSpace(c.Name) == "" {
				problems = append(problems, fmt.Sprintf("%s.categories[%d]: name is required", s.Name, ci))
			} else if seenCat[c.Name] {
				problems = append(problems, fmt.Sprintf("%s/%s: duplicate category", s.Name, c.Name))
			}
			seenCat[c.Name] = true

			cat := Category{
				Name:        c.Name,
				Description: c.Description,
				Keywords:    append([]string(nil), c.Keywords...),
				Tools:       make([]Tool, 0, len(c.Tools)),
			}
			seenTool := make(map[string]bool, len(c.Tools))
			for ti, t := range c.Tools {
				if strings.TrimSpace(t.Name) == "" {
					problems = append(problems, fmt.Sprintf("%s/%s.tools[%d]: name is required", s.Name, c.Name, ti))
				} else if seenTool[t.Name] {
					problems = append(problems, fmt.Sprintf("%s/%s/%s: duplicate tool", s.Name, c.Name, t.Name))
				}
				seenTool[t.Name] = true

				t.Server = s.Name
				t.Category = c.Name
				t.Keywords = append([]string(nil), t.Keywords...)
				cat.Tools = append(cat.Tools, t)
			}
			srv.Categories = append(srv.Categories, cat)
		}
		out = append(out, srv)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: invalid catalog: %s", config.ErrConfiguration, strings.Join(problems, "; "))
	}
	return &Catalog{servers: out}, nil
}

// ServerNames returns server names in catalog order.
func (c *Catalog) ServerNames() []string {
	out := make([]string, 0, len(c.servers))
	for _, s := range c.servers {
		out = append(out, s.Name)
	}
	return out
}

// Servers returns a copy of every server.
func (c *Catalog) Servers() []Server {
	out := make([]Server, len(c.servers))
	for i, s := range c.servers {
		out[i] = copyServer(s)
	}
	return out
}

// Server returns the named server.
func (c *Catalog) Server(name string) (Server, bool) {
	for _, s := range c.servers {
		if s.Name == name {
			return copyServer(s), true
		}
	}
	return Server{}, false
}

// Categories returns the categories of server in definition order.
func (c *Catalog) Categories(server string) ([]Category, error) {
	s, ok := c.Server(server)
	if !ok {
		return nil, fmt.Errorf("%w: server %q", ErrNotFound, server)
	}
	return s.Categories, nil
}

// Tools returns the tools of one category in definition order.
func (c *Catalog) Tools(server, category string) ([]Tool, error) {
	cats, err := c.Categories(server)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		if cat.Name == category {
			return cat.Tools, nil
		}
	}
	return nil, fmt.Errorf("%w: category %q on server %q", ErrNotFound, category, server)
}

// Lookup returns a single tool.
func (c *Catalog) Lookup(server, category, tool string) (Tool, bool) {
	tools, err := c.Tools(server, category)
	if err != nil {
		return Tool{}, false
	}
	for _, t := range tools {
		if t.Name == tool {
			return t, true
		}
	}
	return Tool{}, false
}

// All returns every tool in traversal order: server, category, tool.
func (c *Catalog) All() []Tool {
	var out []Tool
	for _, s := range c.servers {
		for _, cat := range s.Categories {
			for _, t := range cat.Tools {
				out = append(out, copyTool(t))
			}
		}
	}
	return out
}

// Len returns the total number of tools.
func (c *Catalog) Len() int {
	n := 0
	for _, s := range c.servers {
		n += s.ToolCount()
	}
	return n
}

func copyServer(s Server) Server {
	out := Server{Name: s.Name, Description: s.Description, Categories: make([]Category, len(s.Categories))}
	for i, cat := range s.Categories {
		cc := Category{
			Name:        cat.Name,
			Description: cat.Description,
			Keywords:    append([]string(nil), cat.Keywords...),
			Tools:       make([]Tool, len(cat.Tools)),
		}
		for j, t := range cat.Tools {
			cc.Tools[j] = copyTool(t)
		}
		out.Categories[i] = cc
	}
	return out
}

// copyTool copies the keyword slice. InputSchema is shared; it is treated
// as read-only everywhere.
func copyTool(t Tool) Tool {
	t.Keywords = append([]string(nil), t.Keywords...)
	return t
}

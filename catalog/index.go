package catalog

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolgen/protocol"
)

// Index builds a BM25 search index over the catalog together with a
// documentation store. Each tool is registered in the namespace of its
// server under its peer-facing name, tagged with its keywords and its
// category.
func (c *Catalog) Index() (index.Index, tooldoc.Store, error) {
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})

	for _, t := range c.All() {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		tool := model.Tool{
			Tool: mcp.Tool{
				Name:        t.FullName(),
				Description: t.Description,
				InputSchema: schema,
			},
			Namespace: t.Server,
			Tags:      append(append([]string(nil), t.Keywords...), t.Category),
		}
		if err := idx.RegisterTool(tool, model.NewLocalBackend(t.Server)); err != nil {
			return nil, nil, fmt.Errorf("index %s: %w", t.Ref(), err)
		}
		if err := docs.RegisterDoc(IndexID(t), tooldoc.DocEntry{
			Summary: t.Description,
			Notes:   docNotes(t),
		}); err != nil {
			return nil, nil, fmt.Errorf("document %s: %w", t.Ref(), err)
		}
	}
	return idx, docs, nil
}

// IndexID returns the identifier Index registers t under.
func IndexID(t Tool) string {
	return t.Server + ":" + t.FullName()
}

// RefFromIndexID maps an index identifier back to a tool reference.
func RefFromIndexID(id string) (ToolRef, bool) {
	ns, name, ok := strings.Cut(id, ":")
	if !ok {
		return ToolRef{}, false
	}
	server, category, tool, ok := protocol.SplitToolName(name)
	if !ok || server != ns {
		return ToolRef{}, false
	}
	return ToolRef{Server: server, Category: category, Tool: tool}, true
}

func docNotes(t Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call as agent.Execute(%q, %q, %q, params).", t.Server, t.Category, t.Name)
	if len(t.Keywords) > 0 {
		fmt.Fprintf(&b, " Keywords: %s.", strings.Join(t.Keywords, ", "))
	}
	return b.String()
}

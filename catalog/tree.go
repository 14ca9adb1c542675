package catalog

import (
	"fmt"
	"strings"
)

// treeToolsShown is the number of tools listed per category in Tree.
const treeToolsShown = 3

// Tree renders the catalog as an indented text tree. An empty server
// renders every server. Each category lists its first three tools and a
// count of the rest.
func (c *Catalog) Tree(server string) (string, error) {
	servers := c.servers
	if server != "" {
		s, ok := c.Server(server)
		if !ok {
			return "", fmt.Errorf("%w: server %q", ErrNotFound, server)
		}
		servers = []Server{s}
	}

	var b strings.Builder
	for _, s := range servers {
		fmt.Fprintf(&b, "%s/\n", s.Name)
		for i, cat := range s.Categories {
			lastCat := i == len(s.Categories)-1
			branch, indent := "├── ", "│   "
			if lastCat {
				branch, indent = "└── ", "    "
			}
			fmt.Fprintf(&b, "%s%s/ (%d tools)\n", branch, cat.Name, len(cat.Tools))

			shown := min(len(cat.Tools), treeToolsShown)
			rest := len(cat.Tools) - shown
			for j := 0; j < shown; j++ {
				leaf := "├── "
				if j == shown-1 && rest == 0 {
					leaf = "└── "
				}
				fmt.Fprintf(&b, "%s%s%s\n", indent, leaf, cat.Tools[j].Name)
			}
			if rest > 0 {
				fmt.Fprintf(&b, "%s└── ... %d more\n", indent, rest)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

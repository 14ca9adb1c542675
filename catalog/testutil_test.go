package catalog

import "testing"

// sampleServers is a small two-server catalog used across tests.
func sampleServers() []Server {
	return []Server{
		{
			Name:        "github",
			Description: "GitHub API",
			Categories: []Category{
				{
					Name:        "repos",
					Description: "Repository management",
					Keywords:    []string{"repository"},
					Tools: []Tool{
						{Name: "list_repos", Description: "List repositories for a user", Keywords: []string{"repository", "list"}},
						{Name: "create_repo", Description: "Create a new repository", Keywords: []string{"repository", "create"}},
						{Name: "delete_repo", Description: "Delete a repository"},
						{Name: "fork_repo", Description: "Fork a repository"},
					},
				},
				{
					Name:        "issues",
					Description: "Issue tracking",
					Tools: []Tool{
						{
							Name:        "create_issue",
							Description: "Open an issue",
							Keywords:    []string{"bug", "ticket"},
							InputSchema: map[string]any{
								"type":       "object",
								"properties": map[string]any{"title": map[string]any{"type": "string"}},
							},
						},
					},
				},
			},
		},
		{
			Name: "slack",
			Categories: []Category{
				{
					Name: "messages",
					Tools: []Tool{
						{Name: "send_message", Description: "Post a message to a channel", Keywords: []string{"chat"}},
					},
				},
			},
		},
	}
}

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(sampleServers()...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

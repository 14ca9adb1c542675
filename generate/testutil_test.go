package generate

import (
	"testing"

	"github.com/jonwraymond/toolgen/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.Server{
			Name: "github",
			Categories: []catalog.Category{
				{Name: "repos", Tools: []catalog.Tool{
					{Name: "list_repos", Description: "List repositories", Keywords: []string{"repository"}},
					{Name: "create_repo", Description: "Create a repository", Keywords: []string{"repository", "new"}},
				}},
				{Name: "issues", Tools: []catalog.Tool{
					{Name: "create_issue", Description: "Open an issue", Keywords: []string{"bug", "ticket"}},
				}},
			},
		},
		catalog.Server{
			Name: "slack",
			Categories: []catalog.Category{
				{Name: "messages", Tools: []catalog.Tool{
					{Name: "send_message", Description: "Post to a channel"},
				}},
			},
		},
	)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return c
}

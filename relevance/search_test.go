package relevance

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
					{Name: "create_repo", Description: "Create a repository"},
					{Name: "delete_repo", Description: "Delete a repository"},
					{Name: "fork_repo", Description: "Fork a repository"},
				}},
				{Name: "issues", Tools: []catalog.Tool{
					{Name: "create_issue", Description: "Open an issue", Keywords: []string{"bug", "ticket"}},
					{Name: "comment", Description: "Comment on an issue or pull request"},
				}},
			},
		},
		catalog.Server{
			Name: "slack",
			Categories: []catalog.Category{
				{Name: "messages", Tools: []catalog.Tool{
					{Name: "send_message", Description: "Post a message to a channel", Keywords: []string{"chat"}},
					{Name: "traduire", Description: "Créer un DÉPÔT de traduction"},
				}},
			},
		},
	)
	require.NoError(t, err)
	return c
}

func refs(tools []catalog.Tool) []string {
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Ref().String())
	}
	return out
}

func TestSearch_MatchesNameDescriptionKeywords(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"list_repos", []string{"github/repos/list_repos"}},
		{"channel", []string{"slack/messages/send_message"}},
		{"ticket", []string{"github/issues/create_issue"}},
		{"CREATE", []string{"github/repos/create_repo", "github/issues/create_issue"}},
		{"dépôt", []string{"slack/messages/traduire"}},
		{"nothing-like-this", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := refs(Search(c, tt.query))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestSearch_IdempotentAndSatisfiesInclusionRule(t *testing.T) {
	c := testCatalog(t)
	for _, q := range []string{"repo", "issue", "a", "", "MESSAGE", "Ticket"} {
		first := Search(c, q)
		second := Search(c, q)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Search(%q) not idempotent (-first +second):\n%s", q, diff)
		}
		for _, tool := range first {
			assert.True(t, Matches(tool, q), "%s does not match %q", tool.Ref(), q)
		}
	}
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	c := testCatalog(t)
	assert.Len(t, Search(c, ""), c.Len())
	assert.Nil(t, Search(nil, "repo"))
}

func TestSearchByKeywords_DedupesAndCapsPerToken(t *testing.T) {
	c := testCatalog(t)

	got := refs(SearchByKeywords(c, "repository issue"))
	want := []string{
		"github/repos/list_repos",
		"github/repos/create_repo",
		"github/repos/delete_repo",
		"github/issues/create_issue",
		"github/issues/comment",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchByKeywords mismatch (-want +got):\n%s", diff)
	}

	dup := refs(SearchByKeywords(c, "ticket bug"))
	assert.Equal(t, []string{"github/issues/create_issue"}, dup)
}

func TestSearchByKeywords_CapsTotal(t *testing.T) {
	var tools []catalog.Tool
	for i := range 20 {
		tools = append(tools, catalog.Tool{Name: fmt.Sprintf("tool_%02d", i), Description: "widget"})
	}
	c, err := catalog.New(catalog.Server{Name: "s", Categories: []catalog.Category{{Name: "c", Tools: tools}}})
	require.NoError(t, err)

	got := SearchByKeywordsWith(c, "tool widget", KeywordOptions{Limit: MaxKeywordResults})
	assert.Len(t, got, MaxKeywordResults)
	assert.Len(t, SearchByKeywordsWith(c, "tool", KeywordOptions{}), 20)

	perToken := SearchByKeywords(c, "tool_0 tool_1 tool_00 tool_1")
	assert.Equal(t, []string{
		"s/c/tool_00", "s/c/tool_01", "s/c/tool_02",
		"s/c/tool_10", "s/c/tool_11", "s/c/tool_12",
	}, refs(perToken))
}

func TestRanker_KeepsInclusionSet(t *testing.T) {
	c := testCatalog(t)
	r, err := NewRanker(c)
	require.NoError(t, err)

	got, err := r.Rank("issue comment", 0)
	require.NoError(t, err)
	want := SearchByKeywordsWith(c, "issue comment", KeywordOptions{})
	assert.ElementsMatch(t, refs(want), refs(got))
	require.NotEmpty(t, got)
	assert.Equal(t, "github/issues/comment", got[0].Ref().String())

	limited, err := r.Rank("repository", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := r.Rank("zzz", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewRanker_NilCatalog(t *testing.T) {
	_, err := NewRanker(nil)
	assert.Error(t, err)
	_, err = NewRankerWithIndex(testCatalog(t), nil)
	assert.Error(t, err)
}

func TestRanker_OrderSharedIndex(t *testing.T) {
	c := testCatalog(t)
	idx, _, err := c.Index()
	require.NoError(t, err)
	r, err := NewRankerWithIndex(c, idx)
	require.NoError(t, err)

	matched := Search(c, "issue")
	require.NotEmpty(t, matched)
	got, err := r.Order("issue", matched, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, refs(matched), refs(got))

	one, err := r.Order("issue", matched, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	none, err := r.Order("issue", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

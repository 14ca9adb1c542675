package relevance

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jonwraymond/toolgen/catalog"
)

// Result caps used by SearchByKeywords.
const (
	// MaxKeywordResults caps the tools SearchByKeywords returns.
	MaxKeywordResults = 10

	// DefaultPerToken caps the tools SearchByKeywords takes from each token.
	DefaultPerToken = 3
)

// Search returns every tool whose simple name, description or any keyword
// contains query, compared under Unicode case folding. Results keep catalog
// traversal order. An empty query matches every tool.
func Search(cat *catalog.Catalog, query string) []catalog.Tool {
	if cat == nil {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(query)

	var out []catalog.Tool
	for _, t := range cat.All() {
		if matches(fold, t, needle) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether t satisfies the Search inclusion rule for query.
func Matches(t catalog.Tool, query string) bool {
	fold := cases.Fold()
	return matches(fold, t, fold.String(query))
}

func matches(fold cases.Caser, t catalog.Tool, needle string) bool {
	if strings.Contains(fold.String(t.Name), needle) {
		return true
	}
	if strings.Contains(fold.String(t.Description), needle) {
		return true
	}
	for _, kw := range t.Keywords {
		if strings.Contains(fold.String(kw), needle) {
			return true
		}
	}
	return false
}

// KeywordOptions bounds SearchByKeywordsWith. Zero values mean no cap.
type KeywordOptions struct {
	// Limit caps the total number of tools returned.
	Limit int

	// PerToken caps the number of matches taken from each token.
	PerToken int
}

// SearchByKeywords splits freeText on whitespace, runs Search per token and
// returns the first MaxKeywordResults distinct tools, taking at most
// DefaultPerToken from each token.
func SearchByKeywords(cat *catalog.Catalog, freeText string) []catalog.Tool {
	return SearchByKeywordsWith(cat, freeText, KeywordOptions{
		Limit:    MaxKeywordResults,
		PerToken: DefaultPerToken,
	})
}

// SearchByKeywordsWith is SearchByKeywords with explicit caps. Tools are
// deduplicated by ToolRef and keep first-seen order.
func SearchByKeywordsWith(cat *catalog.Catalog, freeText string, opts KeywordOptions) []catalog.Tool {
	seen := make(map[catalog.ToolRef]bool)
	var out []catalog.Tool
	for _, token := range strings.Fields(freeText) {
		matched := Search(cat, token)
		if opts.PerToken > 0 && len(matched) > opts.PerToken {
			matched = matched[:opts.PerToken]
		}
		for _, t := range matched {
			ref := t.Ref()
			if seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, t)
			if opts.Limit > 0 && len(out) == opts.Limit {
				return out
			}
		}
	}
	return out
}

package relevance

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/tooldiscovery/index"

	"github.com/jonwraymond/toolgen/catalog"
)

// Ranker orders matches by BM25 score.
//
// Contract:
//   - Concurrency: safe for concurrent use once built.
//   - Inclusion: Rank returns exactly the tools SearchByKeywordsWith returns
//     without caps, and Order returns exactly the tools it is given; scoring
//     only changes their order.
type Ranker struct {
	cat *catalog.Catalog
	idx index.Index
}

// NewRanker indexes cat for ranked search.
func NewRanker(cat *catalog.Catalog) (*Ranker, error) {
	if cat == nil {
		return nil, errors.New("relevance: catalog is required")
	}
	idx, _, err := cat.Index()
	if err != nil {
		return nil, fmt.Errorf("relevance: build index: %w", err)
	}
	return &Ranker{cat: cat, idx: idx}, nil
}

// NewRankerWithIndex ranks against idx, an index already built by
// cat.Index.
func NewRankerWithIndex(cat *catalog.Catalog, idx index.Index) (*Ranker, error) {
	if cat == nil || idx == nil {
		return nil, errors.New("relevance: catalog and index are required")
	}
	return &Ranker{cat: cat, idx: idx}, nil
}

// Rank returns the tools matching any token of query, best BM25 score
// first. Matches the index did not score follow in catalog order. A limit
// of zero or less returns every match.
func (r *Ranker) Rank(query string, limit int) ([]catalog.Tool, error) {
	return r.Order(query, SearchByKeywordsWith(r.cat, query, KeywordOptions{}), limit)
}

// Order sorts matched by the BM25 score of query, best first. Tools the
// index did not score keep their relative order at the end. A limit of
// zero or less returns every tool.
func (r *Ranker) Order(query string, matched []catalog.Tool, limit int) ([]catalog.Tool, error) {
	if len(matched) == 0 {
		return nil, nil
	}
	byRef := make(map[catalog.ToolRef]catalog.Tool, len(matched))
	for _, t := range matched {
		byRef[t.Ref()] = t
	}

	scored, err := r.idx.Search(query, r.cat.Len())
	if err != nil {
		return nil, fmt.Errorf("relevance: search index: %w", err)
	}

	out := make([]catalog.Tool, 0, len(matched))
	placed := make(map[catalog.ToolRef]bool, len(matched))
	for _, s := range scored {
		ref, ok := catalog.RefFromIndexID(s.ID)
		if !ok || placed[ref] {
			continue
		}
		if t, ok := byRef[ref]; ok {
			out = append(out, t)
			placed[ref] = true
		}
	}
	for _, t := range matched {
		if !placed[t.Ref()] {
			out = append(out, t)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

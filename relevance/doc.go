// Package relevance filters a tool catalog against free-text queries.
//
// Search is a case-insensitive substring filter over a tool's simple name,
// description and keywords, returned in catalog traversal order.
// SearchByKeywords runs Search per whitespace token and collects a small,
// deduplicated candidate list for prompt building. Ranker reorders the same
// candidate set by BM25 score.
package relevance

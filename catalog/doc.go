// Package catalog holds the read-only tool catalog: servers, their
// categories, and the tools in each category, in definition order.
//
// A catalog comes from one of three places:
//
//   - a catalog file (.yaml, .yml, .json or .toml), see [Load];
//   - a scaffold metadata tree, one directory per server with a
//     metadata.json per server and per category, see [LoadDir];
//   - live servers, listed over MCP and grouped by a [Categorizer],
//     see [Discover] and [DiscoverAll].
//
// [Catalog.Index] builds a BM25 search index and documentation store over
// the catalog for scored search and tool descriptions.
package catalog

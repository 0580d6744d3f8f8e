// Package model defines the data structures shared across webmap:
// graph nodes, progress events, and crawl results.
//
// The types in this package are intentionally free of behavior beyond
// simple accessors and copies. All crawl policy lives in the crawler
// package; all accumulation logic lives in the graph package. This keeps
// model usable by the database, report, and pipeline packages without
// import cycles.
package model

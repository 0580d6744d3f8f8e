// Package report renders crawl results in multiple output formats.
//
// Available writers:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: canonical-URL-keyed object for tool integration
//   - CSVWriter: one row per node for spreadsheet import
//   - MarkdownWriter: documentation-friendly report with a mermaid chart
//   - DOTWriter: Graphviz digraph for visual rendering
//
// All writers implement the Writer interface, and MultiWriter fans a
// single result out to several destinations at once.
package report

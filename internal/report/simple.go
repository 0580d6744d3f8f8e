package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webmap/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEdges controls whether the per-page link list is shown.
	showEdges bool

	// verbose enables additional detail such as parameter examples.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEdges configures the writer to print the per-page link list.
func WithShowEdges(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEdges = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl result in human-readable format.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeNodes(&sb, result)
	if w.showEdges {
		w.writeEdges(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          WEBMAP CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seed URL:      %s\n", result.SeedURL))
	sb.WriteString(fmt.Sprintf("Started:       %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:      %s\n", result.Duration()))
	sb.WriteString(fmt.Sprintf("Pages Fetched: %d\n", result.PagesFetched))
	sb.WriteString(fmt.Sprintf("Nodes:         %d\n", result.NodeCount()))
	sb.WriteString(fmt.Sprintf("Edges:         %d\n", result.EdgeCount()))

	if result.Cancelled {
		sb.WriteString("Status:        CANCELLED (partial results)\n")
	} else {
		sb.WriteString("Status:        Complete\n")
	}

	sb.WriteString("\n")
}

// writeNodes writes the node table sorted by URL.
func (w *SimpleWriter) writeNodes(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if result.NodeCount() == 0 {
		sb.WriteString("  No pages discovered\n\n")
		return
	}

	for _, url := range result.SortedURLs() {
		node := result.Nodes[url]

		status := "---"
		if node.Status != nil {
			status = fmt.Sprintf("%3d", *node.Status)
		}

		marker := " "
		if node.AcceptsParams {
			marker = "?"
		}

		sb.WriteString(fmt.Sprintf("  [%s] %s %s (out: %d)\n", status, marker, url, node.OutDegree))

		if w.verbose {
			for _, example := range node.ParamExamples {
				sb.WriteString(fmt.Sprintf("        param: %s\n", example))
			}
		}
	}
	sb.WriteString("\n")
}

// writeEdges writes the adjacency grouped by source page.
func (w *SimpleWriter) writeEdges(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("LINKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if result.EdgeCount() == 0 {
		sb.WriteString("  No links discovered\n\n")
		return
	}

	for _, from := range result.SortedURLs() {
		targets := result.Adjacency[from]
		if len(targets) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("  %s\n", from))
		for _, to := range targets {
			sb.WriteString(fmt.Sprintf("    -> %s\n", to))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webmap\n")
	sb.WriteString("https://github.com/nao1215/webmap\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

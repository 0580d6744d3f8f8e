package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webmap/internal/model"
)

// DOTWriter outputs the page graph in Graphviz DOT format so it can be
// rendered with `dot -Tpng` or any Graphviz-compatible viewer.
//
// Design decision: The DOT grammar we need is a flat digraph with node
// attributes, which is a few lines of string assembly. Pulling in a
// graph library for this would add a dependency without removing any
// complexity.
type DOTWriter struct {
	baseWriter
}

// NewDOTWriter creates a DOTWriter that outputs to the given writer.
func NewDOTWriter(output io.Writer) *DOTWriter {
	return &DOTWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the graph in DOT format. Node fill color encodes the
// HTTP status class; nodes that were never fetched are drawn gray.
func (w *DOTWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	sb.WriteString("digraph webmap {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n\n")

	for _, url := range result.SortedURLs() {
		node := result.Nodes[url]
		label := url
		if node.Status != nil {
			label = fmt.Sprintf("%s\\n%d", url, *node.Status)
		}
		sb.WriteString(fmt.Sprintf("  %s [label=%s, fillcolor=%s];\n",
			quoteDOT(url), quoteDOT(label), nodeColor(node)))
	}

	sb.WriteString("\n")

	for _, from := range result.SortedURLs() {
		for _, to := range result.Adjacency[from] {
			sb.WriteString(fmt.Sprintf("  %s -> %s;\n", quoteDOT(from), quoteDOT(to)))
		}
	}

	sb.WriteString("}\n")

	return w.output.Write([]byte(sb.String()))
}

// nodeColor maps a node to a Graphviz fill color by status class.
func nodeColor(node *model.Node) string {
	switch {
	case node.Status == nil:
		return "lightgray"
	case *node.Status >= 200 && *node.Status < 300:
		return "palegreen"
	case *node.Status >= 300 && *node.Status < 400:
		return "lightskyblue"
	case *node.Status >= 400 && *node.Status < 500:
		return "khaki"
	default:
		return "lightcoral"
	}
}

// quoteDOT quotes a string as a DOT double-quoted ID.
// Backslash escapes already present (e.g. the \n in labels) are
// meaningful in DOT, so only double quotes need escaping.
func quoteDOT(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

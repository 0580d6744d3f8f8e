package report

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webmap/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid diagrams for the status distribution chart
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full crawl result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeStatusSummary(md, result)
	w.writeNodeTable(md, result)
	w.writeEdgeList(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Webmap Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + result.SeedURL + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration().String()},
			{"Pages Fetched", strconv.Itoa(result.PagesFetched)},
			{"Nodes", strconv.Itoa(result.NodeCount())},
			{"Edges", strconv.Itoa(result.EdgeCount())},
			{"Status", w.statusText(result)},
		},
	})
	md.PlainText("")
}

// statusText returns the run status text based on result state.
func (w *MarkdownWriter) statusText(result *model.CrawlResult) string {
	if result.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	return "✅ Complete"
}

// statusBuckets counts nodes by HTTP status class.
type statusBuckets struct {
	success     int // 2xx
	redirect    int // 3xx
	clientError int // 4xx
	serverError int // 5xx
	unfetched   int // no status recorded
}

func bucketNodes(result *model.CrawlResult) statusBuckets {
	var b statusBuckets
	for _, node := range result.Nodes {
		switch {
		case node.Status == nil:
			b.unfetched++
		case *node.Status >= 200 && *node.Status < 300:
			b.success++
		case *node.Status >= 300 && *node.Status < 400:
			b.redirect++
		case *node.Status >= 400 && *node.Status < 500:
			b.clientError++
		default:
			b.serverError++
		}
	}
	return b
}

// writeStatusSummary writes the status class summary with a pie chart.
func (w *MarkdownWriter) writeStatusSummary(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Status Summary")
	md.PlainText("")

	b := bucketNodes(result)
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Count"},
		Rows: [][]string{
			{"🟢 Success (2xx)", strconv.Itoa(b.success)},
			{"🔵 Redirect (3xx)", strconv.Itoa(b.redirect)},
			{"🟡 Client Error (4xx)", strconv.Itoa(b.clientError)},
			{"🔴 Server Error (5xx)", strconv.Itoa(b.serverError)},
			{"⚪ Not Fetched", strconv.Itoa(b.unfetched)},
		},
	})
	md.PlainText("")

	if result.NodeCount() > 0 {
		w.writePieChart(md, b)
	}

	switch {
	case b.serverError > 0:
		md.Warningf("%d page(s) returned server errors.", b.serverError)
	case b.clientError > 0:
		md.Importantf("%d page(s) returned client errors (broken links or restricted pages).", b.clientError)
	default:
		md.Tip("No error responses observed.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, b statusBuckets) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Node Status Distribution"),
		piechart.WithShowData(true),
	)

	if b.success > 0 {
		chart.LabelAndIntValue("Success", uint64(b.success))
	}
	if b.redirect > 0 {
		chart.LabelAndIntValue("Redirect", uint64(b.redirect))
	}
	if b.clientError > 0 {
		chart.LabelAndIntValue("Client Error", uint64(b.clientError))
	}
	if b.serverError > 0 {
		chart.LabelAndIntValue("Server Error", uint64(b.serverError))
	}
	if b.unfetched > 0 {
		chart.LabelAndIntValue("Not Fetched", uint64(b.unfetched))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeNodeTable writes the node table sorted by URL.
func (w *MarkdownWriter) writeNodeTable(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if result.NodeCount() == 0 {
		md.PlainText("No pages discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, result.NodeCount())
	for _, url := range result.SortedURLs() {
		node := result.Nodes[url]

		status := "-"
		if node.Status != nil {
			status = strconv.Itoa(*node.Status)
		}

		params := "no"
		if node.AcceptsParams {
			examples, err := json.Marshal(node.ParamExamples)
			if err == nil {
				params = "yes " + escapePipes(truncateString(string(examples), 60))
			} else {
				params = "yes"
			}
		}

		rows = append(rows, []string{
			"`" + node.URL + "`",
			status,
			params,
			strconv.Itoa(node.OutDegree),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Params", "Out-Degree"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeEdgeList writes the adjacency as a nested bullet list.
func (w *MarkdownWriter) writeEdgeList(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Links")
	md.PlainText("")

	if result.EdgeCount() == 0 {
		md.PlainText("No links discovered.")
		md.PlainText("")
		return
	}

	for _, from := range result.SortedURLs() {
		targets := result.Adjacency[from]
		if len(targets) == 0 {
			continue
		}

		md.PlainTextf("**`%s`**", from)
		md.PlainText("")

		items := make([]string, 0, len(targets))
		for _, to := range targets {
			items = append(items, "`"+to+"`")
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [webmap](https://github.com/nao1215/webmap)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// escapePipes makes a string safe for use inside a markdown table cell.
func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

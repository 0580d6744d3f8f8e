package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/nao1215/webmap/internal/model"
)

// CSVWriter outputs results in CSV format with one row per node.
// This format is designed for spreadsheet import and ad-hoc filtering.
//
// Design decision: We use gocarina/gocsv to map rows through a tagged
// struct so the header stays tied to the row type instead of being
// maintained as a separate string slice.
type CSVWriter struct {
	baseWriter
}

// nodeRow is the CSV projection of a node. The status column is empty
// for nodes that were never fetched, and param_examples holds the
// example list as a JSON-encoded array string so the column survives
// commas inside URLs.
type nodeRow struct {
	URL           string `csv:"url"`
	Status        *int   `csv:"status"`
	AcceptsParams bool   `csv:"accepts_params"`
	ParamExamples string `csv:"param_examples"`
	OutDegree     int    `csv:"out_degree"`
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the node table in CSV format, rows sorted by URL.
func (w *CSVWriter) Write(result *model.CrawlResult) (int, error) {
	rows := make([]nodeRow, 0, len(result.Nodes))
	for _, url := range result.SortedURLs() {
		node := result.Nodes[url]

		examples := []byte("[]")
		if len(node.ParamExamples) > 0 {
			var err error
			examples, err = json.Marshal(node.ParamExamples)
			if err != nil {
				return 0, fmt.Errorf("failed to encode param examples for %s: %w", url, err)
			}
		}

		rows = append(rows, nodeRow{
			URL:           node.URL,
			Status:        node.Status,
			AcceptsParams: node.AcceptsParams,
			ParamExamples: string(examples),
			OutDegree:     node.OutDegree,
		})
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return 0, fmt.Errorf("failed to encode CSV: %w", err)
	}

	return w.output.Write(buf.Bytes())
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/webmap/internal/config"
	"github.com/nao1215/webmap/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawl runs or re-export one",
		Long: `History lists the crawl runs stored in the local database.

Every 'webmap crawl' run is saved automatically. Use --run to load a
stored run and re-export it in any report format without crawling again.

Examples:
  # List all stored runs
  webmap history

  # Re-export run 3 as pretty-printed JSON
  webmap history --run 3 --json

  # Re-export run 3 as a DOT graph into a file
  webmap history --run 3 --dot -o graph.dot`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Re-export the stored run with the given ID")

	// Report flags, shared semantics with the crawl command
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with other formats)")
	cmd.Flags().Bool("csv", false,
		"Output CSV report (mutually exclusive with other formats)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with other formats)")
	cmd.Flags().Bool("dot", false,
		"Output Graphviz DOT graph (mutually exclusive with other formats)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	if runID > 0 {
		return exportRun(cmd, db, runID)
	}

	return listRuns(cmd, db)
}

// listRuns prints a table of all stored crawl runs.
func listRuns(cmd *cobra.Command, db *database.CrawlDB) error {
	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored crawl runs. Run 'webmap crawl <seed-url>' first.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEED\tSTARTED\tPAGES\tNODES\tEDGES\tSTATUS")

	for _, run := range runs {
		status := "complete"
		if run.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.SeedURL,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.PagesFetched,
			run.NodeCount,
			run.EdgeCount,
			status,
		)
	}

	return w.Flush()
}

// exportRun loads a stored run and writes it in the requested format.
func exportRun(cmd *cobra.Command, db *database.CrawlDB, runID int64) error {
	result, err := db.GetResult(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runID, err)
	}

	// Reuse the report-format selection from the crawl command by
	// projecting the flags into a config.
	cfg := config.NewConfig()

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.CSVReport, err = cmd.Flags().GetBool("csv"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.DOTReport, err = cmd.Flags().GetBool("dot"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}

	formats := 0
	for _, set := range []bool{cfg.JSONReport, cfg.CSVReport, cfg.MarkdownReport, cfg.DOTReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return config.ErrConflictingReportFormats
	}

	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	_, err = newReportWriter(cfg, output).Write(result)
	return err
}

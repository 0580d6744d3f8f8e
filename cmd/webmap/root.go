package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webmap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webmap",
		Short: "Map a website as a directed graph of pages and links",
		Long: `Webmap crawls a website from a seed URL and builds a directed graph of
its pages: which page links where, what HTTP status each page returned,
and which pages accept query or form parameters.

Results can be printed as a human-readable summary or exported as JSON,
CSV, Markdown, or Graphviz DOT. Each run is also stored locally so past
crawls can be listed and re-exported with 'webmap history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

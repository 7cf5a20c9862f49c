package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wikidump.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikidump",
		Short: "Export wiki spaces to static HTML",
		Long: `wikidump exports the page trees of Confluence-style wiki spaces to static HTML.

Every space becomes a folder holding one HTML file per page, an index.html
with the page tree, and the downloaded attachments. Links between pages and
to attachments are rewritten to the exported files. Later runs only render
pages that changed since the previous export.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write diagnostic logs as JSON")

	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// The interruption has already been reported on stderr.
		if !errors.Is(err, errInterrupted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gocrawler.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gocrawler",
		Short: "Concurrent web crawler with content deduplication",
		Long: `gocrawler crawls the web from seed addresses with a pool of workers.

Pages, links between them, images and documents (PDF, DOC, DOCX, PPT, PPTX)
are stored in SQLite (default) or PostgreSQL. Pages whose content was already
stored are recorded as duplicates and not crawled further.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatsCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

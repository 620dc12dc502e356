package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/gocrawler/internal/database"
	"github.com/nao1215/gocrawler/internal/model"
	"github.com/nao1215/gocrawler/internal/report"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what the database contains",
		Long: `Stats prints the number of sites, pages by type, links, images and
documents stored so far, the sites with the most pages, and the counters of
the latest crawl run.

Examples:
  gocrawler stats
  gocrawler stats --markdown > crawl.md
  gocrawler stats --json --db-dir ./data`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (mutually exclusive with --json)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	addDatabaseFlags(cmd)

	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if asMarkdown && asJSON {
		return errors.New("--markdown and --json cannot be used together")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}

	var run *model.CrawlRun
	latest, err := store.LatestRun(ctx)
	switch {
	case err == nil:
		run = &latest
	case errors.Is(err, database.ErrNotFound):
	default:
		return err
	}

	var w report.Writer
	switch {
	case asMarkdown:
		w = report.NewMarkdownWriter(cmd.OutOrStdout())
	case asJSON:
		w = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	default:
		w = report.NewSimpleWriter(cmd.OutOrStdout())
	}

	if _, err := w.Write(report.New(run, summary)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

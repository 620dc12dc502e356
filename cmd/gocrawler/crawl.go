package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/gocrawler/internal/config"
	"github.com/nao1215/gocrawler/internal/crawler"
	"github.com/nao1215/gocrawler/internal/database"
	"github.com/nao1215/gocrawler/internal/dedup"
	"github.com/nao1215/gocrawler/internal/fetch"
	"github.com/nao1215/gocrawler/internal/frontier"
	applog "github.com/nao1215/gocrawler/internal/log"
	"github.com/nao1215/gocrawler/internal/registry"
	"github.com/nao1215/gocrawler/internal/report"
	"github.com/nao1215/gocrawler/internal/telemetry"
)

// shutdownTimeout bounds the work done after the crawl stops.
const shutdownTimeout = 10 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed ...]",
		Short: "Crawl the web starting from seed addresses",
		Long: `Crawl fetches the seed addresses and every page they link to, until no
address is left. Results are stored in the database; a summary is printed
when the crawl ends. Ctrl+C stops the workers after their current page.

Without arguments the seeds from the configuration are crawled.

Examples:
  # Crawl the default seeds
  gocrawler crawl

  # Crawl one site with 8 workers and no pause between pages
  gocrawler crawl -w 8 -d 0 https://example.com

  # Crawl through a local Tor daemon, at most 2 requests per second
  gocrawler crawl --proxy 127.0.0.1:9050 --rate 2 http://example.onion

  # Store results in PostgreSQL and write a Markdown report
  gocrawler crawl --db-driver pgx --dsn postgres://localhost/crawl -o report.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of concurrent workers")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay, "Pause each worker takes after a page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout of a single request")
	cmd.Flags().Int("frontier-capacity", 0, "Maximum number of queued addresses (0 = unbounded)")
	cmd.Flags().Float64("rate", 0, "Maximum requests per second across all workers (0 = unlimited)")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize, "Maximum response size in bytes; larger responses are dropped")
	cmd.Flags().StringP("report", "o", "", "Write a Markdown report to this file")
	cmd.Flags().String("log-file", "", "Also write logs to this rotated file")
	cmd.Flags().Bool("json-log", false, "Write logs as JSON")
	cmd.Flags().String("otlp-endpoint", "", "Export traces to this OTLP/gRPC collector")
	addDatabaseFlags(cmd)

	return cmd
}

// addDatabaseFlags registers the flags shared by crawl and stats.
func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gocrawler.yaml or the XDG config directory)")
	cmd.Flags().String("db-dir", "", "Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().String("db-driver", config.DriverSQLite, "Database driver: sqlite or pgx")
	cmd.Flags().String("dsn", "", "PostgreSQL connection string")
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping workers...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig loads the configuration and applies explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Seeds = args
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("frontier-capacity") {
		if cfg.FrontierCapacity, err = flags.GetInt("frontier-capacity"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("report") {
		if cfg.ReportFile, err = flags.GetString("report"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-file") {
		if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("json-log") {
		if cfg.JSONLog, err = flags.GetBool("json-log"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("otlp-endpoint") {
		if cfg.OTLPEndpoint, err = flags.GetString("otlp-endpoint"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadConfig reads the config file and environment, then applies the
// database flags shared by crawl and stats.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath, config.DefaultEnvFile)
	if err != nil {
		return nil, err
	}

	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-driver") {
		if cfg.DBDriver, err = flags.GetString("db-driver"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dsn") {
		if cfg.DSN, err = flags.GetString("dsn"); err != nil {
			return nil, err
		}
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger writes to stderr and, when configured, to a rotated log file.
// The returned function closes the log file.
func setupLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	w := stderr
	closeFn := func() {}

	if cfg.LogFile != "" {
		file, err := applog.NewFileWriter(cfg.LogFile, applog.DefaultRotation)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(stderr, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := applog.New(w, applog.Options{
		Level: applog.LevelFor(cfg.Verbose),
		JSON:  cfg.JSONLog,
	})
	return logger, closeFn, nil
}

// openStore opens the configured database.
func openStore(ctx context.Context, cfg *config.Config, create bool) (*database.Store, error) {
	opts := database.DefaultOptions(cfg.DBDir)
	opts.Driver = cfg.DBDriver
	opts.DSN = cfg.DSN
	opts.CreateIfNotExists = create
	opts.Tracing = cfg.OTLPEndpoint != ""

	store, err := database.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// runCrawl runs one crawl and prints its report to out.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (err error) {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       true,
		ServiceName:    config.AppName,
		ServiceVersion: getVersion(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, shutdownTracing(shutdownCtx))
	}()

	store, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database opened", "driver", store.Driver(), "path", store.Path(), "dsn", cfg.DSN)

	client, err := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithRateLimit(cfg.RateLimit),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	if err := client.CheckProxy(ctx); err != nil {
		return fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w",
			cfg.ProxyAddress, err)
	}

	engine, err := crawler.NewEngine(
		crawler.Dependencies{
			Fetcher: client,
			Store:   store,
			Sites:   registry.New(store, registry.WithLogger(logger)),
			Dedup:   dedup.New(store, dedup.WithLogger(logger)),
		},
		crawler.WithWorkers(cfg.Workers),
		crawler.WithDelay(cfg.Delay),
		crawler.WithFrontier(frontier.New(frontier.WithCapacity(cfg.FrontierCapacity))),
		crawler.WithLogger(logger),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
	)
	if err != nil {
		return err
	}

	run, err := store.StartRun(ctx, cfg.Seeds)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Crawling %d seed(s) with %d worker(s)...\n", len(cfg.Seeds), cfg.Workers)
	stats, crawlErr := engine.Run(ctx, cfg.Seeds)
	interrupted := errors.Is(crawlErr, context.Canceled)
	if crawlErr != nil && !interrupted {
		return crawlErr
	}

	// The crawl context may be cancelled; bookkeeping still has to finish.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := store.FinishRun(finishCtx, run.ID, stats); err != nil {
		return err
	}
	run.FinishedAt = time.Now()
	run.Stats = &stats

	summary, err := store.Summary(finishCtx)
	if err != nil {
		return err
	}
	rep := report.New(&run, summary)

	if _, err := report.NewSimpleWriter(out).Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.ReportFile != "" {
		if err := writeReportFile(cfg.ReportFile, rep); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", cfg.ReportFile)
	}

	if interrupted {
		return fmt.Errorf("crawl interrupted: %w", crawlErr)
	}
	return nil
}

// writeReportFile writes a Markdown report, creating parent directories.
func writeReportFile(path string, rep *report.Report) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if _, err := report.NewMarkdownWriter(f).Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

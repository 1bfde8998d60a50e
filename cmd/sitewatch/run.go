package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewatch/internal/config"
	"github.com/nao1215/sitewatch/internal/database"
	"github.com/nao1215/sitewatch/internal/detect"
	"github.com/nao1215/sitewatch/internal/fetch"
	"github.com/nao1215/sitewatch/internal/fingerprint"
	"github.com/nao1215/sitewatch/internal/model"
	"github.com/nao1215/sitewatch/internal/report"
	"github.com/nao1215/sitewatch/internal/state"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url...]",
		Short: "Fetch every watched page and report changes",
		Long: `Run fetches every watched page once, compares it with the previous
snapshot and prints a report of the pages that changed.

Sources come from the configuration file unless URLs are given as
arguments. The state file is updated once at the end of the run.

Examples:
  # Watch the sources listed in .sitewatch
  sitewatch run

  # Watch ad-hoc URLs with a separate state file
  sitewatch run --state ./pricing.json https://www.shopify.com/pricing

  # Markdown report for a CI job summary
  sitewatch run --markdown -o report.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("state", "",
		"State file path (default: state.json in the XDG data directory)")
	cmd.Flags().String("history-dir", "",
		"Run history database directory (default: the XDG data directory)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each fetch")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency, "Number of pages fetched at once")
	cmd.Flags().Int("max-diff-lines", config.DefaultMaxDiffLines,
		"Maximum lines per diff excerpt (0 disables truncation)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header sent with every fetch")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().String("algorithm", string(fingerprint.Default),
		fmt.Sprintf("Fingerprint algorithm %v", fingerprint.Algorithms()))
	cmd.Flags().Bool("fail-on-fetch-error", true,
		"Exit with status 2 when pages could not be fetched and nothing changed")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runDetection(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := outputReport(cmd.OutOrStdout(), cfg, result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveHistory {
		if err := saveHistory(ctx, cfg.HistoryDir, result, logger); err != nil {
			logger.Error("failed to record run history", "error", err)
		}
	}

	return outcomeError(result, cfg.FailOnFetchError)
}

// runDetection wires the fetcher, state store and driver from cfg and
// performs one run.
func runDetection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.RunResult, error) {
	alg, err := fingerprint.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	fp, err := fingerprint.New(alg)
	if err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("starting run",
		"sources", len(cfg.Sources),
		"state", cfg.StatePath,
		"concurrency", cfg.Concurrency,
		"algorithm", alg,
	)

	driver := detect.New(
		state.NewStore(cfg.StatePath),
		fetcher,
		detect.WithMaxDiffLines(cfg.MaxDiffLines),
		detect.WithConcurrency(cfg.Concurrency),
		detect.WithFingerprinter(fp),
		detect.WithLogger(logger),
	)
	return driver.Run(ctx, cfg.Sources)
}

// newFetcher builds the HTTP fetcher described by cfg.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.Fetcher, error) {
	client, err := fetch.NewClient(fetch.ClientConfig{
		Timeout:      cfg.Timeout,
		Proxy:        cfg.Proxy,
		MaxRedirects: cfg.MaxRedirects,
		Headers:      cfg.DefaultHeaders(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	opts := []fetch.Option{
		fetch.WithClient(client),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	for _, source := range cfg.Sources {
		opts = append(opts, fetch.WithSourceHeaders(source, cfg.HeadersFor(source)))
	}
	return fetch.New(opts...), nil
}

// outputReport writes the run report in the requested format to stdout,
// or to cfg.ReportFile when set.
func outputReport(stdout io.Writer, cfg *config.Config, result *model.RunResult) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain request-specific content, keep them owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(output, cfg).Write(result)
	return err
}

func newReportWriter(w io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// saveHistory records result in the run history database in dir.
func saveHistory(ctx context.Context, dir string, result *model.RunResult, logger *slog.Logger) error {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	// The run is already complete; an interrupt must not drop its record.
	id, err := db.SaveRun(context.WithoutCancel(ctx), result)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "id", id, "db", db.Path())
	return nil
}

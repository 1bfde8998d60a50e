package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewatch/internal/config"
	"github.com/nao1215/sitewatch/internal/database"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs recorded in the history database",
		Long: `History lists previous runs, newest first.

Examples:
  # Last 20 runs
  sitewatch history

  # Full report of run 42
  sitewatch history --id 42

  # Every recorded change or fetch failure of one page
  sitewatch history --source https://www.shopify.com/pricing

  # Drop runs older than 90 days
  sitewatch history --delete-older-than 2160h`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("history-dir", "",
		"Run history database directory (default: the XDG data directory)")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Number of runs to list (0 lists all)")
	cmd.Flags().Int64("id", 0, "Show the full report of one run")
	cmd.Flags().String("source", "", "List the changes and fetch failures of one source")
	cmd.Flags().Duration("delete-older-than", 0, "Delete runs older than this duration")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report with --id (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report with --id (mutually exclusive with --json)")

	cmd.MarkFlagsMutuallyExclusive("id", "source", "delete-older-than")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(filepath.Join(cfg.HistoryDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	db, err := database.Open(cfg.HistoryDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	flags := cmd.Flags()

	if flags.Changed("delete-older-than") {
		age, err := flags.GetDuration("delete-older-than")
		if err != nil {
			return err
		}
		n, err := db.DeleteBefore(ctx, time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d run(s).\n", n)
		return nil
	}

	if flags.Changed("id") {
		id, err := flags.GetInt64("id")
		if err != nil {
			return err
		}
		result, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		_, err = newReportWriter(out, historyReportConfig(cfg)).Write(result)
		return err
	}

	if flags.Changed("source") {
		source, err := flags.GetString("source")
		if err != nil {
			return err
		}
		events, err := db.SourceHistory(ctx, source)
		if err != nil {
			return err
		}
		return writeSourceEvents(out, source, events)
	}

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return writeRuns(out, runs)
}

// historyReportConfig forces the verbose text report so a stored clean run
// still prints its source lists.
func historyReportConfig(cfg *config.Config) *config.Config {
	c := *cfg
	if !c.JSONReport && !c.MarkdownReport {
		c.Verbose = true
	}
	return &c
}

func writeRuns(w io.Writer, runs []database.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tOUTCOME\tSOURCES\tCHANGED\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Outcome,
			run.SourceCount,
			run.ChangedCount,
			run.FailedCount,
		)
	}
	return tw.Flush()
}

func writeSourceEvents(w io.Writer, source string, events []database.SourceEvent) error {
	if len(events) == 0 {
		fmt.Fprintf(w, "No changes or failures recorded for %s.\n", source)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tEVENT\tDETAIL")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			ev.RunID,
			ev.StartedAt.Local().Format(time.DateTime),
			ev.Kind,
			ev.Detail,
		)
	}
	return tw.Flush()
}

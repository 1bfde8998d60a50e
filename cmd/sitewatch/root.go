package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	swlog "github.com/nao1215/sitewatch/internal/log"
)

// NewRootCmd creates the root command for sitewatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitewatch",
		Short: "Detect content changes on watched web pages",
		Long: `sitewatch fetches a list of web pages, compares each page with the
snapshot recorded by the previous run and reports what changed.

Whitespace-only churn is ignored. The first observation of a page records a
baseline silently. Exit status:
  0  no changes
  1  at least one page changed
  2  some pages could not be fetched (and nothing changed)
  3  fatal error (bad configuration, corrupt or unwritable state)`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitewatch in current or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewPruneCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the status it produced.
func Execute() {
	os.Exit(execute(NewRootCmd(), os.Stderr))
}

func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return ExitClean
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(stderr, exitErr.Err)
		}
		return exitErr.Code
	}

	fmt.Fprintln(stderr, err)
	return ExitFatal
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

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return logJSON
}

// setupLogger creates the masking logger writing to the command's stderr.
func setupLogger(cmd *cobra.Command, verbose, logJSON bool) *slog.Logger {
	if logJSON {
		return swlog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return swlog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

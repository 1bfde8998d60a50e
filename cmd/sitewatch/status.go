package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewatch/internal/fingerprint"
	"github.com/nao1215/sitewatch/internal/state"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sources tracked in the state file",
		Long: `Status lists every source that has a snapshot in the state file, with
its short fingerprint and the size of its normalized text.

Sources with a snapshot that are no longer configured are marked; remove
them with "sitewatch prune". Configured sources without a snapshot have
not been fetched successfully yet.`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("state", "",
		"State file path (default: state.json in the XDG data directory)")

	return cmd
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	st, err := state.NewStore(cfg.StatePath).Load()
	if err != nil {
		return err
	}

	return writeStatus(cmd.OutOrStdout(), cfg.StatePath, st, cfg.Sources)
}

// writeStatus prints st as a table. configured is the current source list,
// used to flag stale snapshots and sources without one.
func writeStatus(w io.Writer, path string, st *state.State, configured []string) error {
	fmt.Fprintf(w, "State:     %s\n", path)
	fmt.Fprintf(w, "Algorithm: %s\n", st.EffectiveAlgorithm())
	if len(st.Snapshots) > 0 {
		fmt.Fprintf(w, "Updated:   %s\n", st.LastUpdatedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Sources:   %d\n\n", len(st.Snapshots))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tFINGERPRINT\tLINES\tBYTES\tNOTE")
	for _, source := range st.Sources() {
		snap, _ := st.Lookup(source)
		note := ""
		if len(configured) > 0 && !slices.Contains(configured, source) {
			note = "not configured"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			source,
			fingerprint.Short(snap.Fingerprint),
			lineCount(snap.NormalizedText),
			len(snap.NormalizedText),
			note,
		)
	}
	for _, source := range configured {
		if _, ok := st.Lookup(source); !ok {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tno snapshot yet\n", source)
		}
	}
	return tw.Flush()
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

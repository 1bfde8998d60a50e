package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewatch/internal/config"
	"github.com/nao1215/sitewatch/internal/state"
)

// NewPruneCmd creates the prune command.
func NewPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove snapshots of sources that are no longer configured",
		Long: `Prune deletes every snapshot whose source is not in the current
configuration. A run never removes snapshots on its own, so a source that
is temporarily commented out keeps its baseline until you prune.

Examples:
  # Show what would be removed
  sitewatch prune --dry-run

  # Remove stale snapshots
  sitewatch prune`,
		Args: cobra.NoArgs,
		RunE: runPruneCmd,
	}

	cmd.Flags().String("state", "",
		"State file path (default: state.json in the XDG data directory)")
	cmd.Flags().Bool("dry-run", false, "List stale snapshots without removing them")

	return cmd
}

func runPruneCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("refusing to prune: %w", config.ErrNoSources)
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	store := state.NewStore(cfg.StatePath)
	st, err := store.Load()
	if err != nil {
		return err
	}

	removed := st.Prune(cfg.Sources)
	out := cmd.OutOrStdout()
	if len(removed) == 0 {
		fmt.Fprintln(out, "Nothing to prune.")
		return nil
	}

	verb := "Would remove"
	if !dryRun {
		verb = "Removed"
		st.LastUpdatedAt = time.Now().UTC()
		if err := store.Save(st); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s %d snapshot(s):\n", verb, len(removed))
	for _, source := range removed {
		fmt.Fprintf(out, "  %s\n", source)
	}
	return nil
}

package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 0,
		"number of sessions to retain (default: backup.retention_count)")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backup sessions",
	Long: `Remove backup sessions beyond the retention count.

By default keeps backup.retention_count sessions. Use --keep to choose a
different count for this run.`,
	Example: `  # Prune to the configured retention count
  dotsnapshot backup prune

  # Keep only the 3 most recent sessions
  dotsnapshot backup prune --keep 3

  See Also:
    dotsnapshot backup list - List backup sessions`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if pruneKeep < 0 {
		return errors.NewUserError(
			errors.Mark(errors.New("--keep must be non-negative"), errors.ErrValidation), "")
	}

	removed, err := newManager(cmd).Prune(pruneKeep)
	if err != nil {
		return errors.Wrap(err, "pruning backups")
	}

	w := cmd.OutOrStdout()
	if len(removed) == 0 {
		fmt.Fprintln(w, "No backups to prune")
		return nil
	}
	for _, id := range removed {
		fmt.Fprintf(w, "  removed %s\n", id)
	}
	fmt.Fprintf(w, "\nTotal: removed %d backup(s)\n", len(removed))
	return nil
}

package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/cli/prompt"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

var (
	cleanNames  []string
	cleanDays   int
	cleanKeep   int
	cleanDryRun bool
	cleanYes    bool
	cleanOutput string
)

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanNames, "name", nil,
		"delete the named snapshot (repeatable)")
	cleanCmd.Flags().IntVar(&cleanDays, "days", 0,
		"delete snapshots older than this many days")
	cleanCmd.Flags().IntVar(&cleanKeep, "keep", -1,
		"delete all but this many of the newest snapshots")
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false,
		"show what would be deleted without deleting")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false,
		"skip the confirmation prompt")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "",
		"snapshot directory to clean (default: output_dir from config)")
	cleanCmd.MarkFlagsMutuallyExclusive("name", "days", "keep")
	cleanCmd.MarkFlagsOneRequired("name", "days", "keep")
	rootCmd.AddCommand(cleanCmd)
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old snapshots",
	Long: `Delete snapshots by name, by age or by keeping only the newest ones.

Exactly one of --name, --days or --keep selects what to delete.`,
	Example: `  # Delete snapshots older than 30 days
  dotsnapshot clean --days 30

  # Keep only the 5 newest snapshots, without asking
  dotsnapshot clean --keep 5 --yes

  # Preview deleting one snapshot
  dotsnapshot clean --name 20240117_143022 --dry-run

  See Also: dotsnapshot list`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	store := newStore(cmd.Context(), flags.Config(), cleanOutput)
	w := cmd.OutOrStdout()

	victims, err := cleanVictims(store)
	if err != nil {
		return err
	}
	if len(victims) == 0 {
		fmt.Fprintln(w, "Nothing to clean")
		return nil
	}

	if cleanDryRun {
		fmt.Fprintf(w, "Would delete %d snapshots:\n", len(victims))
		for _, v := range victims {
			fmt.Fprintf(w, "  %s (%s)\n", v.Name, humanize.Time(v.CreatedAt))
		}
		return nil
	}

	if !cleanYes {
		ok, err := prompt.NewSelector(cmd.InOrStdin(), w).
			Confirm(fmt.Sprintf("Delete %d snapshots?", len(victims)), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Clean cancelled")
			return nil
		}
	}

	var freed int64
	for _, v := range victims {
		if err := store.CleanByName(v.Name, false); err != nil {
			return errors.Wrapf(err, "deleting %s", v.Name)
		}
		freed += v.SizeBytes
	}
	fmt.Fprintf(w, "Deleted %d snapshots, freed %s\n", len(victims), humanize.Bytes(uint64(max(freed, 0))))
	return nil
}

// cleanVictims resolves the snapshots selected by the flags without
// deleting anything.
func cleanVictims(store *snapshot.Manager) ([]snapshot.Info, error) {
	switch {
	case len(cleanNames) > 0:
		victims := make([]snapshot.Info, 0, len(cleanNames))
		for _, name := range cleanNames {
			info, err := store.Get(name)
			if err != nil {
				return nil, errors.NewUserError(err, "Run: dotsnapshot list")
			}
			victims = append(victims, info)
		}
		return victims, nil
	case cleanDays > 0:
		return store.CleanByRetention(time.Duration(cleanDays)*24*time.Hour, true)
	case cleanKeep >= 0:
		victims, err := store.CleanKeepLatest(cleanKeep, true)
		if err != nil {
			return nil, errors.NewUserError(err, "")
		}
		return victims, nil
	default:
		return nil, errors.NewUserError(
			errors.Mark(errors.New("--days must be positive"), errors.ErrValidation), "")
	}
}

package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/cli/prompt"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/restore"
)

var (
	restoreLatest    bool
	restorePlugins   []string
	restoreDryRun    bool
	restoreTargetDir string
	restoreNoBackup  bool
	restoreYes       bool
	restoreOutput    string
	restoreFormat    string
)

func init() {
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false,
		"restore the most recent snapshot")
	restoreCmd.Flags().StringSliceVarP(&restorePlugins, "plugins", "p", nil,
		`plugins to restore; exact names, or "*" patterns matching a substring (default: all)`)
	restoreCmd.Flags().BoolVarP(&restoreDryRun, "dry-run", "n", false,
		"show what would be restored without writing anything")
	restoreCmd.Flags().StringVarP(&restoreTargetDir, "target-dir", "t", "",
		"restore every plugin below this directory instead of its usual location")
	restoreCmd.Flags().BoolVar(&restoreNoBackup, "no-backup", false,
		"do not back up files before overwriting them")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false,
		"skip the confirmation prompt")
	restoreCmd.Flags().StringVarP(&restoreOutput, "output", "o", "",
		"snapshot directory to restore from (default: output_dir from config)")
	restoreCmd.Flags().StringVarP(&restoreFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot]",
	Short: "Restore a snapshot",
	Long: `Restore plugin outputs from a snapshot back onto this machine.

Without a snapshot name you are asked to pick one, or use --latest.
Before files are overwritten they are backed up to a timestamped session
that "dotsnapshot backup restore" can roll back to.

Global pre-restore and post-restore hooks run around the restore, and each
plugin's own pre-restore and post-restore hooks run around it.`,
	Example: `  # Pick a snapshot interactively
  dotsnapshot restore

  # Preview restoring the VSCode plugins from a named snapshot
  dotsnapshot restore 20240117_143022 --plugins "vscode*" --dry-run

  # Restore the latest snapshot into a scratch directory
  dotsnapshot restore --latest --target-dir /tmp/restore --yes

  See Also: dotsnapshot list, dotsnapshot backup`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	if err := flags.CheckFormat(restoreFormat); err != nil {
		return err
	}
	if len(args) == 1 && restoreLatest {
		return errors.NewUserError(errors.New("cannot combine a snapshot name with --latest"), "")
	}

	ctx := cmd.Context()
	cfg := flags.Config()

	mgr, err := newRestorer(ctx, cfg, newStore(ctx, cfg, restoreOutput))
	if err != nil {
		return err
	}

	sel := prompt.NewSelector(cmd.InOrStdin(), cmd.OutOrStdout())
	name, err := pickSnapshot(cmd, sel, mgr, args)
	if err != nil {
		return err
	}

	if !restoreDryRun && !restoreYes {
		ok, err := sel.Confirm(fmt.Sprintf("Restore snapshot %s?", name), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
			return nil
		}
	}

	results, err := mgr.RestoreFromSnapshot(ctx, name, restore.Options{
		Plugins:        restorePlugins,
		DryRun:         restoreDryRun,
		BackupExisting: !restoreNoBackup,
		TargetDir:      restoreTargetDir,
	})
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.NewUserError(err, "Run: dotsnapshot list")
		}
		return errors.NewSystemError(errors.Wrap(err, "restoring snapshot"), "")
	}

	w := cmd.OutOrStdout()
	if flags.Structured(restoreFormat) {
		if err := flags.Encode(w, restoreFormat, results); err != nil {
			return err
		}
	} else if !quiet {
		printRestore(w, name, results, restoreDryRun)
	}

	if failed := restore.Failed(results); len(failed) > 0 {
		return errors.NewPartialFailure("plugins", len(failed), len(results))
	}
	return nil
}

// pickSnapshot resolves the snapshot to restore from args, --latest or
// an interactive prompt.
func pickSnapshot(cmd *cobra.Command, sel *prompt.Selector, mgr *restore.Manager, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	infos, err := mgr.ListSnapshots(cmd.Context())
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.NewUserError(prompt.ErrNoSnapshots, "Create one with: dotsnapshot snapshot")
	}
	if restoreLatest {
		return infos[0].Name, nil
	}

	info, err := sel.SelectSnapshot(infos)
	if err != nil {
		if errors.Is(err, prompt.ErrSelectionCancelled) {
			return "", errors.NewUserError(err, "Pass a snapshot name or --latest")
		}
		return "", err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Selected %s\n", info.Name)
	return info.Name, nil
}

func printRestore(w io.Writer, name string, results []restore.Result, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if dryRun {
		fmt.Fprintf(w, "Dry run: nothing was written\n\n")
	}
	if len(results) == 0 {
		fmt.Fprintf(w, "No plugins in %s matched\n", name)
		return
	}

	files := 0
	var backupPath string
	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(w, "  %s %s %s\n", red("✗"), r.PluginName, gray(r.Error))
			continue
		}
		files += len(r.RestoredFiles)
		fmt.Fprintf(w, "  %s %s %s\n", green("✓"), r.PluginName, gray(fmt.Sprintf("(%d files)", len(r.RestoredFiles))))
		for _, f := range r.RestoredFiles {
			fmt.Fprintf(w, "      %s\n", f)
		}
		if r.BackupPath != "" {
			backupPath = r.BackupPath
		}
	}

	fmt.Fprintln(w)
	verb := "Restored"
	if dryRun {
		verb = "Would restore"
	}
	fmt.Fprintf(w, "%s %d files from %s\n", verb, files, name)
	if backupPath != "" && !dryRun {
		fmt.Fprintf(w, "Previous files backed up under %s\n", gray(backupPath))
	}
}

package backup

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/cli/prompt"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

var (
	restoreLabels []string
	restoreYes    bool
)

func init() {
	restoreCmd.Flags().StringSliceVarP(&restoreLabels, "label", "l", nil,
		"restore only these plugins from the session (repeatable)")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false,
		"skip the confirmation prompt")
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [session-id]",
	Short: "Roll back a restore",
	Long: `Copy the files saved in a backup session back to their original
locations, preserving permissions. Existing files are overwritten.

Without a session ID the most recent session is used. Every file is checked
against its recorded hash before anything is written.`,
	Example: `  # Roll back the most recent restore
  dotsnapshot backup restore

  # Roll back one plugin from a specific session
  dotsnapshot backup restore 20240117T143022 --label npm_config

  See Also:
    dotsnapshot backup list - List backup sessions`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	mgr := newManager(cmd)

	var sessionID string
	if len(args) > 0 {
		sessionID = args[0]
	} else {
		sessions, err := mgr.List()
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return errors.NewUserError(err, "Backups are created by: dotsnapshot restore")
			}
			return errors.Wrap(err, "listing backups")
		}
		sessionID = sessions[0].ID
		fmt.Fprintf(w, "Using most recent backup: %s\n", sessionID)
	}

	session, err := mgr.Get(sessionID)
	if err != nil {
		return errors.NewUserError(err, "Run: dotsnapshot backup list")
	}

	if !restoreYes {
		ok, err := prompt.NewSelector(cmd.InOrStdin(), w).
			Confirm(fmt.Sprintf("Overwrite files from backup %s?", session.ID), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Restore cancelled")
			return nil
		}
	}

	n, err := mgr.Restore(session.ID, restoreLabels...)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.NewUserError(err, "Run: dotsnapshot backup list")
		}
		return errors.NewSystemError(errors.Wrap(err, "restoring backup"), "")
	}

	fmt.Fprintf(w, "%s Restored %d files from backup %s\n", color.GreenString("✓"), n, session.ID)
	return nil
}

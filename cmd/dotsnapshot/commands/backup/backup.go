// Package backup provides CLI commands for managing pre-restore backups.
package backup

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
)

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage pre-restore backups",
	Long: `Manage the backups taken before a restore overwrites files.

Each restore writes one session named after its start time. Inside a
session every plugin's files sit under their own label, so a single plugin
can be rolled back on its own.

Backups are stored in the directory set by backup.dir, by default
~/.local/share/dotsnapshot/backups.`,
	Example: `  # List backup sessions
  dotsnapshot backup list

  # Roll back the most recent restore
  dotsnapshot backup restore

  # Roll back only the VSCode settings from one session
  dotsnapshot backup restore 20240117T143022 --label vscode_settings

  # Keep the 3 most recent sessions
  dotsnapshot backup prune --keep 3

  See Also:
    dotsnapshot backup list    - List backup sessions
    dotsnapshot backup restore - Roll back a restore
    dotsnapshot backup prune   - Remove old sessions`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// newManager returns the backup manager for the loaded configuration.
func newManager(cmd *cobra.Command) *backup.Manager {
	cfg := flags.Config()
	return backup.NewManager(
		backup.WithBackupDir(cfg.BackupDir()),
		backup.WithRetentionCount(cfg.Backup.RetentionCount),
		backup.WithLogger(logging.FromContext(cmd.Context())),
	)
}

package hooks

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

var scriptsDirCreate bool

func init() {
	scriptsDirCmd.Flags().BoolVar(&scriptsDirCreate, "create", false,
		"create the directory if it does not exist")
	Cmd.AddCommand(scriptsDirCmd)
}

var scriptsDirCmd = &cobra.Command{
	Use:   "scripts-dir",
	Short: "Print the hook scripts directory",
	Long: `Print the directory that relative script hook commands resolve
against, set by hooks.scripts_dir.`,
	Example: `  # Print the directory
  dotsnapshot hooks scripts-dir

  # Create it and copy a script in
  cp sync.sh "$(dotsnapshot hooks scripts-dir --create)"`,
	Args: cobra.NoArgs,
	RunE: runScriptsDir,
}

func runScriptsDir(cmd *cobra.Command, _ []string) error {
	dir := paths.ExpandHome(flags.Config().HooksConfig().ScriptsDir)

	if scriptsDirCreate {
		if err := paths.EnsureDir(dir, 0o755); err != nil {
			return errors.NewSystemError(errors.Wrapf(err, "creating %s", dir), "")
		}
	} else if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s does not exist yet; pass --create to make it\n", dir)
	}

	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}

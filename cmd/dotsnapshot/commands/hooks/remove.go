package hooks

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

var removePlugin string

func init() {
	removeCmd.Flags().StringVar(&removePlugin, "plugin", "",
		"remove from this plugin's hooks instead of the global ones")
	Cmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:   "remove <phase> <index>",
	Short: "Remove a hook",
	Long: `Remove one hook from the configuration file. The index is the one shown
by "dotsnapshot hooks list"; later hooks of the phase move up by one.`,
	Example: `  # Remove the first global pre-snapshot hook
  dotsnapshot hooks remove pre-snapshot 0

  # Remove a plugin hook
  dotsnapshot hooks remove post-plugin 1 --plugin homebrew_brewfile`,
	Args: cobra.ExactArgs(2),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg := flags.Config()

	phase, err := parseScope(cfg, removePlugin, args[0])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.NewUserError(
			errors.Mark(errors.Newf("invalid index %q", args[1]), errors.ErrValidation),
			"Run: dotsnapshot hooks list")
	}

	removed, err := cfg.RemoveHook(removePlugin, phase, index)
	if err != nil {
		return errors.NewUserError(err, "Run: dotsnapshot hooks list")
	}
	if err := save(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s hook [%d]: %s\n",
		color.GreenString("✓"), phase, index, summarize(removed))
	return nil
}

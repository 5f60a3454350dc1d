// Package hooks provides CLI commands for inspecting and editing the hooks
// configured in the dotsnapshot configuration file.
package hooks

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/plugin/builtin"
)

// Cmd is the root hooks command.
var Cmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage lifecycle hooks",
	Long: `Manage the hooks that run around snapshots and restores.

Global hooks run in pre-snapshot, post-snapshot, pre-restore and
post-restore. Plugin hooks run in pre-plugin, post-plugin, pre-restore and
post-restore for a single plugin.

Each hook performs one action: script, log, notify, backup or cleanup.`,
	Example: `  # Show every configured hook
  dotsnapshot hooks list

  # Log a message before each snapshot
  dotsnapshot hooks add pre-snapshot log --message "starting {snapshot_name}"

  # Run a script after the Homebrew plugin
  dotsnapshot hooks add post-plugin script --plugin homebrew_brewfile --command brew-cleanup.sh

  # Remove the first pre-snapshot hook
  dotsnapshot hooks remove pre-snapshot 0

  See Also:
    dotsnapshot hooks validate    - Check configured hooks
    dotsnapshot hooks scripts-dir - Show the scripts directory`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// pluginNames returns the names of every plugin built from cfg.
func pluginNames(cfg *config.Config) []string {
	reg := plugin.NewRegistry()
	if err := builtin.Register(reg, cfg); err != nil {
		return nil
	}
	return reg.Names()
}

// parseScope checks a --plugin value and the phase it is used with. A
// plugin must be built in or already have a table in the configuration.
func parseScope(cfg *config.Config, pluginName, phaseName string) (hooks.Phase, error) {
	phase, err := hooks.ParsePhase(phaseName)
	if err != nil {
		return "", errors.NewUserError(err, "Phases: pre-snapshot, post-snapshot, pre-plugin, post-plugin, pre-restore, post-restore")
	}
	if pluginName == "" {
		if !slices.Contains(config.GlobalPhases(), phase) {
			return "", errors.NewUserError(
				errors.Mark(errors.Newf("%s hooks belong to a plugin", phase), errors.ErrValidation),
				"Pass --plugin <name>")
		}
		return phase, nil
	}
	_, configured := cfg.Plugins[pluginName]
	if !configured && !slices.Contains(pluginNames(cfg), pluginName) {
		return "", errors.NewUserError(
			errors.Mark(errors.Newf("unknown plugin %q", pluginName), errors.ErrNotFound),
			"Run: dotsnapshot plugins")
	}
	if !slices.Contains(config.PluginPhases(), phase) {
		return "", errors.NewUserError(
			errors.Mark(errors.Newf("plugin hooks cannot run in phase %s", phase), errors.ErrValidation),
			"Plugin phases: pre-plugin, post-plugin, pre-restore, post-restore")
	}
	return phase, nil
}

// save writes cfg back to the file it came from.
func save(cfg *config.Config) error {
	if err := cfg.Save(flags.GetConfigFlag()); err != nil {
		return errors.NewSystemError(err, "")
	}
	return nil
}

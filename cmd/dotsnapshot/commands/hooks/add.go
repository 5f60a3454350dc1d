package hooks

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
)

// Package-level flag variables for hooks add.
var (
	addPlugin      string
	addCommand     string
	addArgs        []string
	addTimeout     int
	addWorkingDir  string
	addEnv         []string
	addMessage     string
	addLevel       string
	addTitle       string
	addPath        string
	addDestination string
	addPatterns    []string
	addDirectories []string
	addTempFiles   bool
)

func init() {
	f := addCmd.Flags()
	f.StringVar(&addPlugin, "plugin", "", "attach the hook to this plugin instead of globally")
	f.StringVar(&addCommand, "command", "", "script: path, relative to the scripts directory unless absolute")
	f.StringSliceVar(&addArgs, "arg", nil, "script: argument (repeatable)")
	f.IntVar(&addTimeout, "timeout", 0, "script: timeout in seconds (default 30)")
	f.StringVar(&addWorkingDir, "working-dir", "", "script: working directory")
	f.StringSliceVar(&addEnv, "env", nil, "script: environment variable in KEY=VALUE format (repeatable)")
	f.StringVar(&addMessage, "message", "", "log, notify: message, with {variable} placeholders")
	f.StringVar(&addLevel, "level", "", "log: trace, debug, info, warn or error (default info)")
	f.StringVar(&addTitle, "title", "", "notify: title")
	f.StringVar(&addPath, "path", "", "backup: file or directory to copy")
	f.StringVar(&addDestination, "destination", "", "backup: directory to copy into")
	f.StringSliceVar(&addPatterns, "pattern", nil, "cleanup: file name pattern (repeatable)")
	f.StringSliceVar(&addDirectories, "directory", nil, "cleanup: directory to clean (repeatable)")
	f.BoolVar(&addTempFiles, "temp-files", false, "cleanup: also clean the system temp directories")
	Cmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <phase> <action>",
	Short: "Add a hook",
	Long: `Add a hook to the configuration file.

The action is one of script, log, notify, backup or cleanup. Flags prefixed
with an action name in the help below apply to that action.

The hook is appended after any existing hooks of the same phase. A hook
that would fail validation is still saved, with a warning.`,
	Example: `  # Log before each snapshot
  dotsnapshot hooks add pre-snapshot log --message "starting {snapshot_name}"

  # Notify after the VSCode settings are saved
  dotsnapshot hooks add post-plugin notify --plugin vscode_settings --message "saved {plugin_name}"

  # Run a script with a timeout
  dotsnapshot hooks add post-snapshot script --command sync.sh --arg "{snapshot_dir}" --timeout 120

  # Remove stray temp files after a restore
  dotsnapshot hooks add post-restore cleanup --pattern "*.tmp" --directory ~/Downloads

  See Also:
    dotsnapshot hooks list   - List configured hooks
    dotsnapshot hooks remove - Remove a hook`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := flags.Config()

	phase, err := parseScope(cfg, addPlugin, args[0])
	if err != nil {
		return err
	}

	spec, err := buildSpec(args[1])
	if err != nil {
		return err
	}

	action, err := spec.Action()
	if err != nil {
		return errors.NewUserError(err, "Actions: script, log, notify, backup, cleanup")
	}
	if err := action.Validate(hooks.NewContext("", "", cfg.HooksConfig())); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.YellowString("warning:"), err)
	}

	if err := cfg.AddHook(addPlugin, phase, spec); err != nil {
		return errors.NewUserError(err, "")
	}
	if err := save(cfg); err != nil {
		return err
	}

	where := "global"
	if addPlugin != "" {
		where = addPlugin
	}
	index := len(cfg.Specs(addPlugin, phase)) - 1
	fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s hook [%d] to %s: %s\n",
		color.GreenString("✓"), phase, index, where, action)
	return nil
}

// buildSpec assembles a hook spec from the add flags.
func buildSpec(kind string) (hooks.Spec, error) {
	env, err := parseKeyValueSlice(addEnv, "--env")
	if err != nil {
		return hooks.Spec{}, err
	}

	spec := hooks.Spec{Kind: strings.ToLower(kind)}
	switch hooks.Kind(spec.Kind) {
	case hooks.KindScript:
		spec.Command = addCommand
		spec.Args = addArgs
		spec.Timeout = addTimeout
		spec.WorkingDir = addWorkingDir
		spec.EnvVars = env
	case hooks.KindLog:
		spec.Message = addMessage
		spec.Level = addLevel
	case hooks.KindNotify:
		spec.Message = addMessage
		spec.Title = addTitle
	case hooks.KindBackup:
		spec.Path = addPath
		spec.Destination = addDestination
	case hooks.KindCleanup:
		spec.Patterns = addPatterns
		spec.Directories = addDirectories
		spec.TempFiles = addTempFiles
	}
	return spec, nil
}

// parseKeyValueSlice parses KEY=VALUE entries into a map.
func parseKeyValueSlice(entries []string, flagName string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, errors.NewUserError(
				errors.Mark(errors.Newf("invalid %s format %q: expected KEY=VALUE", flagName, entry), errors.ErrValidation), "")
		}
		result[key] = value
	}
	return result, nil
}

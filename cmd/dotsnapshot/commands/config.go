package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/editor"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/validator"
)

var (
	configShowFormat     string
	configValidateFormat string
	configInitForce      bool
)

func init() {
	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "f", "toml",
		"output format: toml, json, yaml")
	configValidateCmd.Flags().StringVarP(&configValidateFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false,
		"overwrite an existing configuration file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dotsnapshot configuration",
	Long: `Manage the dotsnapshot TOML configuration.

The file is found through --config, $DOTSNAPSHOT_CONFIG, ./dotsnapshot.toml,
./.dotsnapshot.toml, the XDG config directory and ~/.dotsnapshot.toml, in
that order. Without a subcommand, shows the effective configuration.`,
	Example: `  # Show the effective configuration
  dotsnapshot config

  # Check the configuration and every hook
  dotsnapshot config validate

See Also: dotsnapshot hooks`,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after defaults and environment overrides are applied.`,
	Example: `  # As TOML
  dotsnapshot config show

  # As YAML
  dotsnapshot config show --format yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Long: `Print the file the configuration was loaded from. When no file exists,
print where "dotsnapshot config init" would create one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with the default settings to the path given by
--config, or to the XDG config directory.`,
	Example: `  # Create ~/.config/dotsnapshot/config.toml
  dotsnapshot config init

  # Create a project-local file
  dotsnapshot --config ./dotsnapshot.toml config init`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration file: paths, plugin selections and every
configured hook. Script hooks must resolve to existing files.

Exits non-zero when any error is found. Warnings do not fail validation.`,
	Example: `  # Validate
  dotsnapshot config validate

  # As JSON for CI
  dotsnapshot config validate --format json`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	Long: `Open the configuration file in your default editor.

Uses $EDITOR, then $VISUAL, then nano or vi. The editor setting may include
arguments, as in EDITOR="code --wait". A default file is created first when
none exists, and the file is validated after the editor exits.`,
	Example: `  # Open config in default editor
  dotsnapshot config edit

  # Open with specific editor
  EDITOR=nano dotsnapshot config edit`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

// configFilePath returns the loaded configuration file, or the path a new
// one would be written to.
func configFilePath() string {
	if p := flags.Config().Path(); p != "" {
		return p
	}
	if p := flags.GetConfigFlag(); p != "" {
		return paths.ExpandHome(p)
	}
	return paths.DefaultConfigFile()
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := flags.Config()
	w := cmd.OutOrStdout()

	if flags.Structured(configShowFormat) {
		return flags.Encode(w, configShowFormat, cfg)
	}
	if configShowFormat != "toml" {
		return errors.NewUserError(errors.Newf("unknown output format %q", configShowFormat), "Use one of: toml, json, yaml")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if p := cfg.Path(); p != "" {
		fmt.Fprintf(w, "# %s\n", p)
	} else {
		fmt.Fprintln(w, "# defaults (no configuration file found)")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "writing config")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := flags.GetConfigFlag()
	if path == "" {
		path = paths.DefaultConfigFile()
	}
	path = paths.ExpandHome(path)

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return errors.NewUserError(errors.Newf("%s already exists", path), "Pass --force to overwrite it")
	}

	if err := config.Default().Save(path); err != nil {
		return errors.NewSystemError(err, "")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", color.GreenString("✓"), path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	format, err := validator.ParseFormat(configValidateFormat)
	if err != nil {
		return errors.NewUserError(err, "Use one of: text, json, yaml")
	}

	var result *validator.Result
	cfg, err := config.Read(flags.GetConfigFlag())
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return errors.NewUserError(err, "Run: dotsnapshot config init")
	case err != nil:
		// The file could not be parsed, so there is nothing further to check.
		result = &validator.Result{}
		result.AddError("", err.Error(), nil)
	default:
		known := []string{}
		if reg, err := newRegistry(cfg); err == nil {
			known = reg.Names()
		}
		result = validator.ValidateConfig(cfg, known)
	}

	if err := validator.NewReporter(cmd.OutOrStdout(), format).Report(result); err != nil {
		return err
	}
	if result.HasErrors() {
		return errors.NewExitError(errors.Mark(errors.New("configuration is invalid"), errors.ErrInvalidConfig), errors.ExitUser)
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := configFilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Default().Save(path); err != nil {
			return errors.NewSystemError(err, "")
		}
	}
	w := cmd.OutOrStdout()
	if err := editor.Open(cmd.Context(), w, path); err != nil {
		return errors.NewSystemError(err, "Set $EDITOR to an installed editor")
	}
	if _, err := config.Load(path); err != nil {
		return errors.NewConfigError(err)
	}
	fmt.Fprintf(w, "%s %s is valid\n", color.GreenString("✓"), path)
	return nil
}

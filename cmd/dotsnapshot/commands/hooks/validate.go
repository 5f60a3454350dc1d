package hooks

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/validator"
)

var validateFormat string

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	Cmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configured hooks",
	Long: `Check every configured hook: its action must be known, its required
fields set, and script commands must resolve to existing files.

Exits non-zero when any error is found.`,
	Example: `  # Validate hooks
  dotsnapshot hooks validate

  # As JSON for CI
  dotsnapshot hooks validate --format json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	format, err := validator.ParseFormat(validateFormat)
	if err != nil {
		return errors.NewUserError(err, "Use one of: text, json, yaml")
	}

	cfg := flags.Config()
	result := validator.ValidateHooks(cfg, pluginNames(cfg))

	if err := validator.NewReporter(cmd.OutOrStdout(), format).Report(result); err != nil {
		return err
	}
	if result.HasErrors() {
		return errors.NewExitError(
			errors.Mark(errors.New("hook configuration is invalid"), errors.ErrValidation),
			errors.ExitUser)
	}
	return nil
}

package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/doctor"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

var (
	doctorFormat string
	doctorAll    bool
	doctorFix    bool
	doctorOnly   []string
)

func init() {
	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	doctorCmd.Flags().BoolVarP(&doctorAll, "all", "a", false,
		"show every check, including passed ones")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"fix permission issues that can be fixed automatically")
	doctorCmd.Flags().StringSliceVar(&doctorOnly, "category", nil,
		"run only these categories: config, filesystem, plugins, snapshots")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration issues",
	Long: `Run diagnostic checks on the dotsnapshot setup.

Checks the configuration file, the permissions of the snapshot, backup and
scripts directories, whether the selected plugins can run here and whether
the latest snapshot still matches its checksum.

Snapshots and backups hold copies of files such as ~/.npmrc, so doctor
suggests keeping their directories private. --fix applies that and removes
world-write access.

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Show problems
  dotsnapshot doctor

  # Show every check
  dotsnapshot doctor --all

  # Tighten permissions
  dotsnapshot doctor --fix

  # Only check the configuration file
  dotsnapshot doctor --category config

  See Also: dotsnapshot config validate`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE:        runDoctor,
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(doctorFormat); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := flags.Config()

	cfgPath := configFilePath()
	if _, err := os.Stat(cfgPath); err != nil {
		cfgPath = ""
	}

	runner := doctor.NewRunner(doctor.WithCategories(doctorOnly...))
	runner.AddCheck(doctor.NewConfigCheck(cfgPath))
	runner.AddCheck(doctor.NewPermissionCheck(
		doctor.Target{Name: "output_dir", Path: cfg.SnapshotsDir(), Dir: true, Private: true, MustWrite: true},
		doctor.Target{Name: "backup.dir", Path: cfg.BackupDir(), Dir: true, Private: true, MustWrite: true},
		doctor.Target{Name: "hooks.scripts_dir", Path: paths.ExpandHome(cfg.HooksConfig().ScriptsDir), Dir: true},
		doctor.Target{Name: "config", Path: cfgPath},
	))
	if reg, err := newRegistry(cfg); err == nil {
		runner.AddCheck(doctor.NewPluginCheck(reg, cfg.IncludePlugins))
	}
	runner.AddCheck(doctor.NewSnapshotCheck(newStore(ctx, cfg, "")))
	if runner.Len() == 0 {
		return errors.NewUserError(errors.Newf("no checks in categories %v", doctorOnly),
			"Use one of: config, filesystem, plugins, snapshots")
	}

	report := runner.Run(ctx)

	var fixes []doctor.FixResult
	if doctorFix {
		fixes = runner.Fix()
		if len(fixes) > 0 {
			// Re-run so the report reflects the fixed state.
			report = runner.Run(ctx)
		}
	}

	w := cmd.OutOrStdout()
	if flags.Structured(doctorFormat) {
		out := struct {
			doctor.Report `yaml:",inline"`
			Fixes         []doctor.FixResult `json:"fixes,omitempty" yaml:"fixes,omitempty"`
		}{*report, fixes}
		if err := flags.Encode(w, doctorFormat, out); err != nil {
			return err
		}
	} else if !quiet {
		printFixes(w, fixes)
		printDoctorReport(w, report, doctorAll)
	}

	switch {
	case report.HasErrors():
		return errors.NewExitError(errors.Mark(errors.New("doctor found errors"), errors.ErrValidation), errors.ExitSystem)
	case report.HasWarnings():
		return errors.NewExitError(errors.Mark(errors.New("doctor found warnings"), errors.ErrValidation), errors.ExitUser)
	}
	return nil
}

func printFixes(w io.Writer, fixes []doctor.FixResult) {
	if len(fixes) == 0 {
		return
	}
	for _, f := range fixes {
		if f.Fixed {
			fmt.Fprintf(w, "%s fixed %s: %s\n", color.GreenString("✓"), f.Path, f.Description)
		} else {
			fmt.Fprintf(w, "%s could not fix %s: %s\n", color.RedString("✗"), f.Path, f.Description)
		}
	}
	fmt.Fprintln(w)
}

func printDoctorReport(w io.Writer, report *doctor.Report, showAll bool) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem && result.Status != doctor.SeverityInfo {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if issues, ok := result.Details["issues"].([]map[string]any); ok {
			for _, issue := range issues {
				fmt.Fprintf(w, "    %s %s\n", issue["path"], gray(issue["problem"]))
			}
		}
		for _, key := range []string{"errors", "unknown_keys"} {
			if lines, ok := result.Details[key].([]string); ok {
				for _, line := range lines {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
		if unavailable, ok := result.Details["unavailable"].(map[string]any); ok {
			for _, name := range slices.Sorted(maps.Keys(unavailable)) {
				fmt.Fprintf(w, "    %s %s\n", name, gray(unavailable[name]))
			}
		}
		if result.FixHint != "" && result.Status != doctor.SeverityPass {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}

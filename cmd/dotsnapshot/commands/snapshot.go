package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/executor"
)

var (
	snapshotOutput      string
	snapshotPlugins     []string
	snapshotConcurrency int
	snapshotFormat      string
)

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "",
		"directory to create the snapshot in (default: output_dir from config)")
	snapshotCmd.Flags().StringSliceVarP(&snapshotPlugins, "plugins", "p", nil,
		"plugins to run: names, categories or name fragments (default: include_plugins from config)")
	snapshotCmd.Flags().IntVar(&snapshotConcurrency, "max-concurrency", -1,
		"maximum plugins run at once; 0 means unlimited (default: max_concurrency from config)")
	snapshotCmd.Flags().StringVarP(&snapshotFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create a new snapshot",
	Long: `Create a new snapshot by running every selected plugin concurrently.

Each plugin's output is checksummed. When the previous snapshot recorded the
same checksum for a plugin, its file is copied forward instead of rewritten.
Global pre-snapshot and post-snapshot hooks run around the plugins, and each
plugin's own pre-plugin and post-plugin hooks run around it.

A plugin failure does not stop the others. The command exits non-zero when
any plugin failed.`,
	Example: `  # Snapshot everything
  dotsnapshot snapshot

  # Only Homebrew and VSCode plugins, one at a time
  dotsnapshot snapshot --plugins homebrew,vscode --max-concurrency 1

  # Into a different directory, as JSON
  dotsnapshot snapshot -o /tmp/snaps --format json

  See Also: dotsnapshot list, dotsnapshot plugins`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

// snapshotOutputJSON is the structured form of a completed run.
type snapshotOutputJSON struct {
	Name    string             `json:"name" yaml:"name"`
	Path    string             `json:"path" yaml:"path"`
	Plugins []pluginResultJSON `json:"plugins" yaml:"plugins"`
}

type pluginResultJSON struct {
	Name     string `json:"name" yaml:"name"`
	Success  bool   `json:"success" yaml:"success"`
	Reused   bool   `json:"reused" yaml:"reused"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	// DurationMS is how long the plugin ran, in milliseconds.
	DurationMS int64 `json:"duration_ms" yaml:"duration_ms"`
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(snapshotFormat); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := flags.Config()

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	include := cfg.IncludePlugins
	if len(snapshotPlugins) > 0 {
		include = snapshotPlugins
	}
	concurrency := cfg.MaxConcurrency
	if snapshotConcurrency >= 0 {
		concurrency = snapshotConcurrency
	}

	exec := executor.New(reg, newStore(ctx, cfg, snapshotOutput),
		executor.WithLogger(logger(ctx)),
		executor.WithHookSource(cfg),
		executor.WithInclude(include),
		executor.WithMaxConcurrency(concurrency),
	)

	run, err := exec.Run(ctx)
	if err != nil {
		return errors.NewSystemError(errors.Wrap(err, "creating snapshot"), "Check that the output directory is writable")
	}

	w := cmd.OutOrStdout()
	if flags.Structured(snapshotFormat) {
		if err := flags.Encode(w, snapshotFormat, toSnapshotJSON(run)); err != nil {
			return err
		}
	} else if !quiet {
		printRun(w, run)
	}

	if failed := run.Failed(); len(failed) > 0 {
		return errors.NewPartialFailure("plugins", len(failed), len(run.Results))
	}
	return nil
}

func toSnapshotJSON(run *executor.Run) snapshotOutputJSON {
	out := snapshotOutputJSON{Name: run.Name, Path: run.Dir, Plugins: make([]pluginResultJSON, 0, len(run.Results))}
	for _, r := range run.Results {
		out.Plugins = append(out.Plugins, pluginResultJSON{
			Name:     r.PluginName,
			Success:  r.Success,
			Reused:   r.Reused,
			Checksum: r.Checksum,
			Error:    r.Error,

			DurationMS: run.Statuses[r.PluginName].Duration.Milliseconds(),
		})
	}
	return out
}

func printRun(w io.Writer, run *executor.Run) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, r := range run.Results {
		switch {
		case !r.Success:
			fmt.Fprintf(w, "  %s %s %s\n", red("✗"), r.PluginName, gray(r.Error))
		case r.Reused:
			fmt.Fprintf(w, "  %s %s %s\n", green("✓"), r.PluginName, gray("(unchanged)"))
		default:
			fmt.Fprintf(w, "  %s %s\n", green("✓"), r.PluginName)
		}
	}

	failed := len(run.Failed())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Snapshot %s: %d plugins, %d succeeded, %d failed\n",
		color.New(color.Bold).Sprint(run.Name), len(run.Results), len(run.Results)-failed, failed)
	fmt.Fprintf(w, "Location: %s\n", run.Dir)
}

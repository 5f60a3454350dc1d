package hooks

import (
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
)

var (
	listPlugin string
	listFormat string
)

func init() {
	listCmd.Flags().StringVar(&listPlugin, "plugin", "",
		"show only the hooks of this plugin")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured hooks",
	Long: `List global hooks and plugin hooks by phase, in the order they run.
The index shown is the one "dotsnapshot hooks remove" takes.`,
	Example: `  # List every hook
  dotsnapshot hooks list

  # Hooks of one plugin as YAML
  dotsnapshot hooks list --plugin vscode_settings --format yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// entry is one configured hook in list output.
type entry struct {
	Plugin  string     `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Phase   string     `json:"phase" yaml:"phase"`
	Index   int        `json:"index" yaml:"index"`
	Summary string     `json:"summary" yaml:"summary"`
	Spec    hooks.Spec `json:"spec" yaml:"spec"`
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(listFormat); err != nil {
		return err
	}

	entries := collect(flags.Config(), listPlugin)

	w := cmd.OutOrStdout()
	if flags.Structured(listFormat) {
		return flags.Encode(w, listFormat, entries)
	}
	printEntries(w, entries, listPlugin)
	return nil
}

// collect gathers hooks in run order: global hooks first, then plugins in
// name order. Plugin tables that match no known plugin are included so
// their hooks can still be removed. A non-empty only restricts the result
// to one plugin.
func collect(cfg *config.Config, only string) []entry {
	entries := []entry{}
	if only == "" {
		for _, phase := range config.GlobalPhases() {
			entries = appendSpecs(entries, "", phase, cfg.Specs("", phase))
		}
	}
	names := pluginNames(cfg)
	for name := range cfg.Plugins {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		if only != "" && name != only {
			continue
		}
		for _, phase := range config.PluginPhases() {
			entries = appendSpecs(entries, name, phase, cfg.Specs(name, phase))
		}
	}
	return entries
}

func appendSpecs(entries []entry, pluginName string, phase hooks.Phase, specs []hooks.Spec) []entry {
	for i, spec := range specs {
		entries = append(entries, entry{
			Plugin:  pluginName,
			Phase:   phase.String(),
			Index:   i,
			Summary: summarize(spec),
			Spec:    spec,
		})
	}
	return entries
}

func summarize(spec hooks.Spec) string {
	a, err := spec.Action()
	if err != nil {
		return "invalid: " + err.Error()
	}
	return a.String()
}

func printEntries(w io.Writer, entries []entry, only string) {
	if len(entries) == 0 {
		if only != "" {
			fmt.Fprintf(w, "No hooks configured for %s\n", only)
		} else {
			fmt.Fprintln(w, "No hooks configured")
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Add one with: dotsnapshot hooks add <phase> <action>")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	scope, phase := "-", ""
	for _, e := range entries {
		if e.Plugin != scope {
			if scope != "-" {
				fmt.Fprintln(w)
			}
			scope, phase = e.Plugin, ""
			if scope == "" {
				fmt.Fprintln(w, bold("Global hooks"))
			} else {
				fmt.Fprintf(w, "%s %s\n", bold("Plugin"), bold(scope))
			}
		}
		if e.Phase != phase {
			phase = e.Phase
			fmt.Fprintf(w, "  %s\n", cyan(phase))
		}
		fmt.Fprintf(w, "    %s %s\n", gray(fmt.Sprintf("[%d]", e.Index)), e.Summary)
	}
}

package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
)

var (
	pluginsFormat string
	pluginsCheck  bool
)

func init() {
	pluginsCmd.Flags().StringVarP(&pluginsFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	pluginsCmd.Flags().BoolVar(&pluginsCheck, "check", false,
		"validate each plugin on this machine")
	rootCmd.AddCommand(pluginsCmd)
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List available plugins",
	Long: `List the plugins dotsnapshot can run, with the file each one writes
inside a snapshot. Plugins selected by include_plugins are marked.

With --check each plugin validates that it can run on this machine.`,
	Example: `  # List plugins
  dotsnapshot plugins

  # Check which plugins can run here
  dotsnapshot plugins --check

  See Also: dotsnapshot snapshot`,
	Args: cobra.NoArgs,
	RunE: runPlugins,
}

type pluginInfo struct {
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	OutputPath  string `json:"output_path" yaml:"output_path"`
	Included    bool   `json:"included" yaml:"included"`
	Available   *bool  `json:"available,omitempty" yaml:"available,omitempty"`
	Problem     string `json:"problem,omitempty" yaml:"problem,omitempty"`
}

func runPlugins(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(pluginsFormat); err != nil {
		return err
	}

	cfg := flags.Config()
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	infos := make([]pluginInfo, 0, reg.Len())
	for _, e := range reg.Entries() {
		info := pluginInfo{
			Name:        e.Name,
			Category:    plugin.Category(e.Name),
			Description: e.Plugin.Description(),
			OutputPath:  plugin.OutputPath(e.Plugin, e.Name),
			Included:    plugin.Matches(e.Name, cfg.IncludePlugins),
		}
		if pluginsCheck {
			err := e.Plugin.Validate(cmd.Context())
			ok := err == nil
			info.Available = &ok
			if err != nil {
				info.Problem = err.Error()
			}
		}
		infos = append(infos, info)
	}

	w := cmd.OutOrStdout()
	if flags.Structured(pluginsFormat) {
		return flags.Encode(w, pluginsFormat, infos)
	}
	printPlugins(w, infos)
	return nil
}

func printPlugins(w io.Writer, infos []pluginInfo) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("NAME"), bold("CATEGORY"), bold("OUTPUT"), bold("DESCRIPTION"))
	for _, p := range infos {
		name := p.Name
		if !p.Included {
			name = gray(p.Name)
		}
		desc := p.Description
		if p.Available != nil {
			if *p.Available {
				desc = green("✓ ") + desc
			} else {
				desc = red("✗ ") + desc + " " + gray("("+p.Problem+")")
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, p.Category, p.OutputPath, desc)
	}
	tw.Flush()
}

package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

var (
	listFormat string
	listOutput string
)

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "",
		"snapshot directory to list (default: output_dir from config)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snapshots",
	Long: `List the snapshots in the output directory, newest first, with their
creation time, size and number of plugins.`,
	Example: `  # List snapshots
  dotsnapshot list

  # As JSON
  dotsnapshot list --format json

  See Also: dotsnapshot snapshot, dotsnapshot clean`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(listFormat); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := flags.Config()
	store := newStore(ctx, cfg, listOutput)
	mgr, err := newRestorer(ctx, cfg, store)
	if err != nil {
		return err
	}
	infos, err := mgr.ListSnapshots(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if flags.Structured(listFormat) {
		if infos == nil {
			infos = []snapshot.Info{}
		}
		return flags.Encode(w, listFormat, infos)
	}
	printSnapshots(w, store.Root(), infos)
	return nil
}

func printSnapshots(w io.Writer, root string, infos []snapshot.Info) {
	if len(infos) == 0 {
		fmt.Fprintf(w, "No snapshots found in %s\n", root)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Create one with: dotsnapshot snapshot")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("NAME"), bold("CREATED"), bold("SIZE"), bold("PLUGINS"))
	var total int64
	for _, info := range infos {
		total += info.SizeBytes
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%d\n",
			green(info.Name),
			info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			gray("("+humanize.Time(info.CreatedAt)+")"),
			humanize.Bytes(uint64(max(info.SizeBytes, 0))),
			info.PluginCount)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d snapshots, %s total in %s\n", len(infos), humanize.Bytes(uint64(max(total, 0))), root)
}

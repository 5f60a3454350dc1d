package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd"
	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
)

var versionFormat string

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version information",
	Long:        `Print the version, commit, build date and Go toolchain of dotsnapshot.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE: func(c *cobra.Command, _ []string) error {
		if err := flags.CheckFormat(versionFormat); err != nil {
			return err
		}
		info := cmd.Info()
		w := c.OutOrStdout()
		if flags.Structured(versionFormat) {
			return flags.Encode(w, versionFormat, info)
		}
		fmt.Fprintf(w, "dotsnapshot %s\n", info.Version)
		fmt.Fprintf(w, "  commit:   %s\n", info.Commit)
		fmt.Fprintf(w, "  built:    %s\n", info.Date)
		fmt.Fprintf(w, "  go:       %s %s\n", info.GoVersion, info.Platform)
		return nil
	},
}

package backup

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

var listFormat string

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", flags.FormatText,
		"output format: text, json, yaml")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup sessions",
	Long: `List every backup session, most recent first, with the plugins it
holds and how many files were saved.`,
	Example: `  # List backup sessions
  dotsnapshot backup list

  # Output as JSON
  dotsnapshot backup list --format json

  See Also:
    dotsnapshot backup restore - Roll back a restore`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// infoOutput represents a single session in structured output.
type infoOutput struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Labels    []string  `json:"labels" yaml:"labels"`
	FileCount int       `json:"file_count" yaml:"file_count"`
	Path      string    `json:"path" yaml:"path"`
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := flags.CheckFormat(listFormat); err != nil {
		return err
	}

	mgr := newManager(cmd)
	sessions, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing backups")
	}

	w := cmd.OutOrStdout()
	if flags.Structured(listFormat) {
		out := make([]infoOutput, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, infoOutput{
				ID:        s.ID,
				CreatedAt: s.CreatedAt,
				Labels:    s.Labels(),
				FileCount: s.FileCount(),
				Path:      s.Path,
			})
		}
		return flags.Encode(w, listFormat, out)
	}

	printSessions(w, mgr.Root(), sessions)
	return nil
}

func printSessions(w io.Writer, root string, sessions []backup.SessionInfo) {
	if len(sessions) == 0 {
		fmt.Fprintf(w, "No backups in %s\n", root)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Backups are created automatically before a restore overwrites files.")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("ID"), bold("CREATED"), bold("FILES"), bold("PLUGINS"))
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s %s\t%d\t%s\n",
			green(s.ID),
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			gray("("+humanize.Time(s.CreatedAt)+")"),
			s.FileCount(),
			strings.Join(s.Labels(), ", "))
	}
	tw.Flush()
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/dotsnapshot/cmd"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

var (
	genDocDir string
	genDocMan bool
)

var genDocCmd = &cobra.Command{
	Use:         "gen-doc",
	Short:       "Generate Markdown or man page documentation for the CLI",
	Hidden:      true,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE: func(c *cobra.Command, _ []string) error {
		if genDocDir == "" {
			return errors.NewUserError(errors.New("output directory is required"), "Pass --dir")
		}

		if err := os.MkdirAll(genDocDir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}

		root := c.Root()
		root.DisableAutoGenTag = true

		if genDocMan {
			header := &doc.GenManHeader{
				Title:   "DOTSNAPSHOT",
				Section: "1",
				Source:  "dotsnapshot " + cmd.Version,
				Manual:  "dotsnapshot manual",
			}
			if err := doc.GenManTree(root, header, genDocDir); err != nil {
				return errors.Wrap(err, "generating man pages")
			}
		} else if err := doc.GenMarkdownTreeCustom(root, genDocDir, filePrepender, linkHandler); err != nil {
			return errors.Wrap(err, "generating markdown")
		}

		fmt.Fprintf(c.OutOrStdout(), "Documentation generated in %s\n", genDocDir)
		return nil
	},
}

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for documentation")
	genDocCmd.Flags().BoolVar(&genDocMan, "man", false, "generate man pages instead of Markdown")
	rootCmd.AddCommand(genDocCmd)
}

// filePrepender adds front matter naming the command,
// dotsnapshot_backup_list.md becoming "dotsnapshot backup list".
func filePrepender(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	title := strings.ReplaceAll(base, "_", " ")

	return fmt.Sprintf(`---
title: "%s"
description: "Reference for %s command"
draft: false
toc: true
---
`, title, title)
}

func linkHandler(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "/docs/reference/" + strings.ToLower(base) + "/"
}

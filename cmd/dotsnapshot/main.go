// Package main is the entry point for the dotsnapshot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
	if hint := errors.SuggestionOf(err); hint != "" {
		fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprint(hint))
	}
	os.Exit(errors.ExitCode(err))
}

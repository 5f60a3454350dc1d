// Package editor launches the user's preferred text editor, used by
// `dotsnapshot config edit`.
package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mattn/go-shellwords"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// fallbacks are tried in order when neither $EDITOR nor $VISUAL is set.
var fallbacks = []string{"nano", "vi"}

// Editor runs an editor attached to the terminal. The zero value is not
// usable; call New.
type Editor struct {
	Getenv   func(string) string
	LookPath func(string) (string, error)

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Editor wired to the process environment and terminal.
func New() *Editor {
	return &Editor{
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Open edits path with the default Editor, printing its location to w first.
func Open(ctx context.Context, w io.Writer, path string) error {
	fmt.Fprintf(w, "Location: %s\n", path)
	return New().Edit(ctx, path)
}

// Edit runs the editor on path and waits for it to exit.
func (e *Editor) Edit(ctx context.Context, path string) error {
	argv, err := e.Command(path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Mark(errors.Wrapf(err, "running %s", argv[0]), errors.ErrExecution)
	}
	return nil
}

// Command returns the argv that edits path. $EDITOR and $VISUAL may carry
// arguments, as in EDITOR="code --wait".
func (e *Editor) Command(path string) ([]string, error) {
	line := e.resolve()
	argv, err := shellwords.Parse(line)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parsing editor command %q", line), errors.ErrValidation)
	}
	if len(argv) == 0 {
		return nil, errors.Mark(errors.New("editor command is empty"), errors.ErrValidation)
	}
	return append(argv, path), nil
}

// resolve picks $EDITOR, then $VISUAL, then the first fallback on PATH.
// An empty variable counts as unset.
func (e *Editor) resolve() string {
	for _, key := range []string{"EDITOR", "VISUAL"} {
		if v := e.Getenv(key); v != "" {
			return v
		}
	}
	for _, name := range fallbacks {
		if _, err := e.LookPath(name); err == nil {
			return name
		}
	}
	return fallbacks[len(fallbacks)-1]
}

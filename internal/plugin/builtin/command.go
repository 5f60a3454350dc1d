package builtin

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
)

// ErrCommandNotFound indicates the program a Command runs is not on PATH.
var ErrCommandNotFound = errors.Mark(errors.New("command not found"), errors.ErrNotFound)

// Command captures the standard output of a command line.
type Command struct {
	plugin.Base

	// Desc is returned by Description.
	Desc string

	// Line is the command line to run. It is split with shell quoting rules
	// but is not run through a shell.
	Line string

	// RestoreName is the filename the captured output is restored under.
	// Empty disables restore.
	RestoreName string
}

var _ plugin.Plugin = (*Command)(nil)

// Description implements plugin.Plugin.
func (c *Command) Description() string { return c.Desc }

// Execute runs the command line and returns its standard output.
func (c *Command) Execute(ctx context.Context, _ string) (string, error) {
	args, err := c.args()
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.FromContext(ctx).Debug("running command", "command", c.Line)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Mark(errors.Newf("%s: %s", args[0], msg), errors.ErrExecution)
	}
	return stdout.String(), nil
}

// Validate checks that the command's program is on PATH.
func (c *Command) Validate(context.Context) error {
	args, err := c.args()
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return errors.Wrapf(ErrCommandNotFound, "%s", args[0])
	}
	return nil
}

// Restore copies the captured output to targetPath/RestoreName.
func (c *Command) Restore(_ context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error) {
	if c.RestoreName == "" {
		return nil, nil
	}
	return restoreFile(snapshotPath, filepath.Join(targetPath, c.RestoreName), dryRun)
}

func (c *Command) args() ([]string, error) {
	args, err := shellwords.Parse(c.Line)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parsing command %q", c.Line), errors.ErrValidation)
	}
	if len(args) == 0 {
		return nil, errors.Mark(errors.New("empty command"), errors.ErrValidation)
	}
	return args, nil
}

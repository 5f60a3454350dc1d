package hooks

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

// DefaultTimeout bounds a Script action that does not set its own timeout.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Execute waits for output pipes after the
// process has been killed.
const waitDelay = 2 * time.Second

// Script failure reasons. Each matches the shared taxonomy via errors.Is.
var (
	// ErrScriptExit means the script ran and exited non-zero.
	ErrScriptExit = errors.Wrap(errors.ErrExecution, "script exited with non-zero status")

	// ErrScriptSpawn means the script could not be started.
	ErrScriptSpawn = errors.Wrap(errors.ErrExecution, "script could not be started")

	// ErrScriptTimeout means the script exceeded its timeout and was killed.
	ErrScriptTimeout = errors.Wrap(errors.ErrTimeout, "script exceeded its timeout")
)

// ScriptError describes a failed Script action.
type ScriptError struct {
	// Command is the resolved executable path.
	Command string

	// Reason is one of ErrScriptExit, ErrScriptSpawn or ErrScriptTimeout.
	Reason error

	// ExitCode is set for ErrScriptExit.
	ExitCode int

	// Stderr holds the trimmed standard error for ErrScriptExit.
	Stderr string

	// Timeout is set for ErrScriptTimeout.
	Timeout time.Duration

	// Err is the underlying process error, if any.
	Err error
}

func (e *ScriptError) Error() string {
	switch e.Reason {
	case ErrScriptTimeout:
		return fmt.Sprintf("Timeout after %s: %s", e.Timeout, e.Command)
	case ErrScriptExit:
		if e.Stderr == "" {
			return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
		}
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
	default:
		return fmt.Sprintf("Failed to execute %s: %v", e.Command, e.Err)
	}
}

// Unwrap returns the failure reason so callers can match it with errors.Is.
func (e *ScriptError) Unwrap() error {
	return e.Reason
}

// Script runs an executable. Relative commands resolve against the
// configured scripts directory.
type Script struct {
	Command    string
	Args       []string
	Timeout    time.Duration
	WorkingDir string
	EnvVars    map[string]string
}

// Kind implements Action.
func (Script) Kind() Kind { return KindScript }

func (s Script) String() string {
	return "script: " + s.Command
}

// Validate requires a command that resolves to an existing file and, when
// set, an existing working directory.
func (s Script) Validate(hctx Context) error {
	if strings.TrimSpace(s.Command) == "" {
		return invalid("Script command cannot be empty")
	}

	resolved := hctx.Config.ResolveScriptPath(s.Command)
	if !exists(resolved) {
		return invalid("Script not found: %s → %s", s.Command, resolved)
	}

	if s.WorkingDir != "" {
		dir := paths.ExpandHome(s.WorkingDir)
		if !exists(dir) {
			return invalid("Working directory does not exist: %s", dir)
		}
	}

	return nil
}

// Execute runs the script and returns its standard output. The process is
// killed when the timeout elapses or ctx is cancelled.
func (s Script) Execute(ctx context.Context, hctx Context) (string, error) {
	logger := logging.FromContext(ctx)
	resolved := hctx.Config.ResolveScriptPath(s.Command)

	args := make([]string, len(s.Args))
	for i, arg := range s.Args {
		args[i] = hctx.Interpolate(arg)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, resolved, args...)
	cmd.WaitDelay = waitDelay
	if s.WorkingDir != "" {
		cmd.Dir = paths.ExpandHome(s.WorkingDir)
	}

	cmd.Env = append(cmd.Environ(), hctx.env()...)
	for _, key := range slices.Sorted(maps.Keys(s.EnvVars)) {
		cmd.Env = append(cmd.Env, key+"="+hctx.Interpolate(s.EnvVars[key]))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Log(ctx, logging.LevelTrace, "executing script", "path", resolved, "args", args, "env", logging.MaskSecrets(s.EnvVars))

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return stdout.String(), &ScriptError{
			Command: s.Command,
			Reason:  ErrScriptTimeout,
			Timeout: timeout,
			Err:     err,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return stdout.String(), &ScriptError{
			Command:  s.Command,
			Reason:   ErrScriptExit,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return stdout.String(), &ScriptError{
		Command: s.Command,
		Reason:  ErrScriptSpawn,
		Err:     err,
	}
}

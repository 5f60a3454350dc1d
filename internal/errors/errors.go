package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Process exit codes.
const (
	ExitSuccess = 0
	// ExitUser covers bad input, bad configuration and missing snapshots.
	ExitUser = 1
	// ExitSystem covers I/O failures, failed plugins and failed hooks.
	ExitSystem = 2
)

// Sentinels. Match them with Is; wrapped and marked errors match too.
var (
	// ErrValidation marks a hook, plugin or setting that failed its checks
	// before anything ran.
	ErrValidation = crdb.New("validation failed")
	// ErrExecution marks a spawn failure, non-zero exit or I/O failure.
	ErrExecution = crdb.New("execution failed")
	// ErrTimeout marks a script that ran past its timeout.
	ErrTimeout = crdb.New("timed out")
	// ErrNotFound marks a missing snapshot, plugin, backup or file.
	ErrNotFound = crdb.New("resource not found")
	// ErrPartialFailure marks a batch where some units failed.
	ErrPartialFailure = crdb.New("partial failure")
	// ErrInvalidConfig marks a configuration that did not validate.
	ErrInvalidConfig = crdb.New("invalid configuration")
)

// Re-exported from cockroachdb/errors so callers need a single errors
// import. Mark tags an error with a sentinel and leaves its message alone.
var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf
	Mark  = crdb.Mark
	Is    = crdb.Is
	As    = crdb.As
)

// ExitError carries the exit code for an error that ends the process,
// and optionally a hint printed under the message.
type ExitError struct {
	Err        error
	Code       int
	Suggestion string
}

// NewExitError returns an ExitError with no suggestion.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError exits with ExitUser.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError exits with ExitSystem.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// NewConfigError exits with ExitUser and points at config validate.
func NewConfigError(err error) *ExitError {
	return NewUserError(err, "Run: dotsnapshot config validate")
}

// NewPartialFailure reports that failed of total units did not complete.
// The error matches ErrPartialFailure and exits with ExitSystem.
func NewPartialFailure(what string, failed, total int) *ExitError {
	return NewSystemError(
		crdb.Wrapf(ErrPartialFailure, "%d of %d %s failed", failed, total, what),
		"Re-run with -v for per-unit details",
	)
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err. Errors without an ExitError in
// their chain exit with ExitUser; a nil error exits with ExitSuccess.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUser
}

// SuggestionOf returns the hint attached to err, if any.
func SuggestionOf(err error) string {
	var exitErr *ExitError
	if As(err, &exitErr) {
		return exitErr.Suggestion
	}
	return ""
}

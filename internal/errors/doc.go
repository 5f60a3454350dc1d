// Package errors provides error handling conventions for the dotsnapshot CLI.
//
// This package defines the sentinel taxonomy shared by the hook, snapshot and
// restore engines, an ExitError type for CLI exit code handling, and exit code
// constants following standard Unix conventions.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [errors.Is]:
//
//	if errors.Is(err, dserrors.ErrNotFound) {
//	    // unknown snapshot
//	}
//
// The taxonomy is:
//
//   - [ErrValidation]: a hook or plugin failed its checks before execution
//   - [ErrExecution]: spawn failure, non-zero exit or I/O failure
//   - [ErrTimeout]: a script exceeded its budget
//   - [ErrNotFound]: unknown snapshot or plugin
//   - [ErrPartialFailure]: some but not all units in a batch failed
//
// Wrapping helpers from github.com/cockroachdb/errors are re-exported so a
// single import covers construction, wrapping and inspection.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, failed plugins, etc.)
//
// # ExitError
//
// Commands return an [ExitError] to choose the exit code and attach a hint:
//
//	return dserrors.NewUserError(err, "Run: dotsnapshot list")
//
// main resolves them with [ExitCode] and [SuggestionOf], which see through
// any wrapping.
package errors

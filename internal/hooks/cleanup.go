package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

// TempFilePattern selects the files a temp sweep removes.
const TempFilePattern = "dotsnapshot*"

// Cleanup deletes files whose names match any of Patterns from each of
// Directories, and optionally sweeps the system temp directories.
type Cleanup struct {
	Patterns    []string
	Directories []string
	TempFiles   bool
}

// Kind implements Action.
func (Cleanup) Kind() Kind { return KindCleanup }

func (c Cleanup) String() string {
	var parts []string
	if len(c.Patterns) > 0 {
		parts = append(parts, "patterns: "+strings.Join(c.Patterns, ", "))
	}
	if len(c.Directories) > 0 {
		parts = append(parts, fmt.Sprintf("dirs: %d", len(c.Directories)))
	}
	if c.TempFiles {
		parts = append(parts, "temp_files")
	}
	return "cleanup: " + strings.Join(parts, ", ")
}

// Validate requires every directory to exist and every pattern to be non-empty.
func (c Cleanup) Validate(Context) error {
	for _, dir := range c.Directories {
		expanded := paths.ExpandHome(dir)
		if !exists(expanded) {
			return invalid("Cleanup directory does not exist: %s", expanded)
		}
	}
	for _, p := range c.Patterns {
		if strings.TrimSpace(p) == "" {
			return invalid("Cleanup pattern cannot be empty")
		}
	}
	return nil
}

// Execute removes matching files. A failure to delete one file is recorded
// and the remaining deletions continue; the combined failures are returned
// as a single error alongside the removed-count output.
func (c Cleanup) Execute(ctx context.Context, _ Context) (string, error) {
	logger := logging.FromContext(ctx)

	var (
		removed  int
		failures []string
	)

	for _, dir := range c.Directories {
		expanded := paths.ExpandHome(dir)
		for _, pattern := range c.Patterns {
			n, errs := cleanPattern(expanded, pattern)
			removed += n
			for _, err := range errs {
				failures = append(failures, fmt.Sprintf("Failed to clean %s/%s: %v", expanded, pattern, err))
			}
		}
	}

	if c.TempFiles {
		for _, dir := range tempDirs() {
			n, errs := cleanPattern(dir, TempFilePattern)
			removed += n
			for _, err := range errs {
				if !os.IsNotExist(err) {
					failures = append(failures, fmt.Sprintf("Failed to clean temp files: %v", err))
				}
			}
		}
	}

	output := fmt.Sprintf("Cleaned up %d files", removed)
	if len(failures) > 0 {
		logger.DebugContext(ctx, output, "errors", len(failures))
		return output, errors.Mark(errors.New(strings.Join(failures, "; ")), errors.ErrExecution)
	}

	logger.DebugContext(ctx, output)
	return output, nil
}

// cleanPattern removes the regular files in dir whose names match pattern.
// It does not descend into subdirectories.
func cleanPattern(dir, pattern string) (int, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, []error{err}
	}

	var (
		count int
		errs  []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !MatchPattern(pattern, entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errs
}

// tempDirs returns the deduplicated set of system temp directories.
func tempDirs() []string {
	var dirs []string
	for _, d := range []string{os.TempDir(), "/tmp", "/var/tmp"} {
		d = filepath.Clean(d)
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// MatchPattern reports whether name matches a cleanup pattern. Only these
// forms are supported:
//
//	*         every name
//	*mid*     names containing mid
//	*suffix   names ending in suffix
//	prefix*   names starting with prefix
//	exact     the name itself
func MatchPattern(pattern, name string) bool {
	switch {
	case pattern == "*":
		return true
	case len(pattern) >= 2 && strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(name, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	default:
		return pattern == name
	}
}

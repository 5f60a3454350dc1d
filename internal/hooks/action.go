package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// Kind identifies the type of an Action. It is the value of the "action"
// key in configuration.
type Kind string

// Action kinds.
const (
	KindScript  Kind = "script"
	KindLog     Kind = "log"
	KindNotify  Kind = "notify"
	KindBackup  Kind = "backup"
	KindCleanup Kind = "cleanup"
)

// Action is a single configured side effect.
type Action interface {
	// Kind returns the action's kind.
	Kind() Kind

	// String returns a short human-readable description.
	String() string

	// Validate checks the action against hctx without side effects.
	Validate(hctx Context) error

	// Execute performs the action and returns its output. Output may be
	// non-empty even when an error is returned.
	Execute(ctx context.Context, hctx Context) (string, error)
}

// DefaultLogLevel is the level used by Log actions that do not set one.
const DefaultLogLevel = "info"

// LogLevels lists the levels a Log action accepts.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// invalid returns an error matching errors.ErrValidation with msg unchanged.
func invalid(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errors.ErrValidation)
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// exists reports whether path can be stat'd.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Log writes a message through the context logger.
type Log struct {
	Message string
	Level   string
}

// Kind implements Action.
func (Log) Kind() Kind { return KindLog }

func (l Log) String() string {
	return fmt.Sprintf(`log: "%s"`, truncate(l.Message, 50))
}

// Validate requires a non-empty message and a known level.
func (l Log) Validate(Context) error {
	if strings.TrimSpace(l.Message) == "" {
		return invalid("Log message cannot be empty")
	}
	if _, ok := logging.ParseLevel(l.level()); !ok {
		return invalid("Invalid log level: %s", l.Level)
	}
	return nil
}

// Execute always succeeds and returns the interpolated message.
func (l Log) Execute(ctx context.Context, hctx Context) (string, error) {
	msg := hctx.Interpolate(l.Message)
	level, _ := logging.ParseLevel(l.level())
	logging.FromContext(ctx).Log(ctx, level, "hook log: "+msg)
	return msg, nil
}

func (l Log) level() string {
	if l.Level == "" {
		return DefaultLogLevel
	}
	return l.Level
}

// Notify announces a message. Native desktop notifications are not wired
// up; the message is logged at info level.
type Notify struct {
	Message string
	Title   string
}

// Kind implements Action.
func (Notify) Kind() Kind { return KindNotify }

func (n Notify) String() string {
	return fmt.Sprintf(`notify: "%s"`, truncate(n.Message, 50))
}

// Validate requires a non-empty message.
func (n Notify) Validate(Context) error {
	if strings.TrimSpace(n.Message) == "" {
		return invalid("Notification message cannot be empty")
	}
	return nil
}

// Execute logs the interpolated title and message.
func (n Notify) Execute(ctx context.Context, hctx Context) (string, error) {
	msg := hctx.Interpolate(n.Message)
	if strings.TrimSpace(msg) == "" {
		return "", errors.Mark(errors.New("notification message is empty"), errors.ErrExecution)
	}
	title := "dotsnapshot"
	if n.Title != "" {
		title = hctx.Interpolate(n.Title)
	}
	logging.FromContext(ctx).InfoContext(ctx, title+": "+msg)
	return "Notification: " + msg, nil
}

// Backup copies a file or directory tree to a destination.
type Backup struct {
	Path        string
	Destination string
}

// Kind implements Action.
func (Backup) Kind() Kind { return KindBackup }

func (b Backup) String() string {
	return fmt.Sprintf("backup: %s → %s", b.Path, b.Destination)
}

// Validate requires the source to exist and the destination's parent to exist.
func (b Backup) Validate(Context) error {
	src := paths.ExpandHome(b.Path)
	if b.Path == "" || !exists(src) {
		return invalid("Backup source path does not exist: %s", src)
	}
	parent := filepath.Dir(paths.ExpandHome(b.Destination))
	if b.Destination == "" || !exists(parent) {
		return invalid("Backup destination parent directory does not exist: %s", parent)
	}
	return nil
}

// Execute copies the source to the destination. Both paths are
// interpolated and have "~" expanded.
func (b Backup) Execute(ctx context.Context, hctx Context) (string, error) {
	src := paths.ExpandHome(hctx.Interpolate(b.Path))
	dst := paths.ExpandHome(hctx.Interpolate(b.Destination))

	if err := fileutil.Copy(src, dst); err != nil {
		return "", errors.Mark(errors.Wrap(err, "Backup failed"), errors.ErrExecution)
	}

	logging.FromContext(ctx).DebugContext(ctx, "backed up", "source", src, "destination", dst)
	return fmt.Sprintf("Backed up %s to %s", src, dst), nil
}

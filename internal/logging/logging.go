package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

// Format selects the terminal log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --log-format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", errors.Newf("unknown log format %q (want text or json)", s)
	}
}

// Config describes a logger built by New.
type Config struct {
	Level  slog.Level
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
	// TimeFormat is the Go layout for text timestamps; time.Kitchen when
	// empty. JSON always uses RFC 3339.
	TimeFormat string
	// Mirror receives a JSON copy of every record, for --log-file.
	Mirror io.Writer
}

// New builds a logger from cfg. Unknown formats fall back to text.
// Secrets are masked in every format, the mirror included.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, ReplaceAttr: replaceAttr}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		text := NewHandler(out, opts)
		text.timeFormat = cfg.TimeFormat
		h = text
	}
	if cfg.Mirror != nil {
		h = NewMultiHandler(h, slog.NewJSONHandler(cfg.Mirror, opts))
	}
	return slog.New(h)
}

// replaceAttr names LevelTrace and masks secrets for the slog builtin
// handlers; Handler does the same itself.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return redactAttr(a)
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ForTest returns a trace-level logger writing to the test log, so hook
// details and script output appear when a test fails or runs with -v.
func ForTest(t testing.TB) *slog.Logger {
	t.Helper()
	return New(Config{Level: LevelTrace, Output: t.Output()})
}

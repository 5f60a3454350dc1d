package logging

import (
	"context"
	"log/slog"
)

// LevelTrace is more verbose than slog.LevelDebug. It is used for per-action
// hook details and raw script output.
const LevelTrace = slog.Level(-8)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default() when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// LevelFromVerbosity maps a -v count to a log level.
// 0 (or negative) is warn, 1 info, 2 debug and 3 or more trace.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelWarn
	case v == 1:
		return slog.LevelInfo
	case v == 2:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// ParseLevel converts a hook log level name into a slog level.
// Unknown names map to info and ok is false.
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch name {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// scopeKeys are attributes rendered as a bracketed prefix before the
// message instead of as key=value pairs, so per-plugin and per-hook lines
// line up when plugins run concurrently.
var scopeKeys = []string{"plugin", "phase"}

// Handler implements slog.Handler for TTY-optimized text output.
// It provides colorized output when the writer supports it.
type Handler struct {
	opts   slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string

	// timeFormat is the layout for record times; empty means time.Kitchen.
	timeFormat string

	// Colors; nil when the writer does not support them.
	timeColor  *color.Color
	debugColor *color.Color
	infoColor  *color.Color
	warnColor  *color.Color
	errorColor *color.Color
	keyColor   *color.Color
	scopeColor *color.Color
}

// NewHandler creates a new TTY-optimized text handler.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	h := &Handler{
		opts: *opts,
		out:  out,
		mu:   &sync.Mutex{},
	}

	if SupportsColor(out) {
		h.timeColor = color.New(color.FgHiBlack)
		h.debugColor = color.New(color.FgMagenta)
		h.infoColor = color.New(color.FgGreen)
		h.warnColor = color.New(color.FgYellow)
		h.errorColor = color.New(color.FgRed, color.Bold)
		h.keyColor = color.New(color.FgCyan)
		h.scopeColor = color.New(color.FgBlue)
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats r as a single line:
//
//	TIME LEVEL [scope] message key=value ...
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var scopes []string
	var pairs []string
	for _, a := range attrs {
		a = h.replace(a)
		if a.Equal(slog.Attr{}) {
			continue
		}
		if isScope(a.Key) {
			scopes = append(scopes, a.Value.String())
			continue
		}
		pairs = h.appendAttr(pairs, "", a)
	}

	var b strings.Builder

	if !r.Time.IsZero() {
		layout := h.timeFormat
		if layout == "" {
			layout = time.Kitchen
		}
		b.WriteString(h.paint(h.timeColor, r.Time.Format(layout)))
		b.WriteByte(' ')
	}

	b.WriteString(h.levelString(r.Level))
	b.WriteByte(' ')

	for _, s := range scopes {
		b.WriteString(h.paint(h.scopeColor, "["+s+"]"))
		b.WriteByte(' ')
	}

	b.WriteString(r.Message)
	for _, p := range pairs {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) levelString(level slog.Level) string {
	name := level.String()
	if level <= LevelTrace {
		name = "TRACE"
	}
	name = fmt.Sprintf("%-5s", name)

	switch {
	case level >= slog.LevelError:
		return h.paint(h.errorColor, name)
	case level >= slog.LevelWarn:
		return h.paint(h.warnColor, name)
	case level >= slog.LevelInfo:
		return h.paint(h.infoColor, name)
	default:
		return h.paint(h.debugColor, name)
	}
}

func (h *Handler) paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

// replace applies the configured ReplaceAttr, then redaction.
func (h *Handler) replace(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(nil, a)
	}
	return redactAttr(a)
}

// appendAttr renders a as key=value, flattening groups into dotted keys.
func (h *Handler) appendAttr(pairs []string, group string, a slog.Attr) []string {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			pairs = h.appendAttr(pairs, key, redactAttr(ga))
		}
		return pairs
	}

	return append(pairs, h.paint(h.keyColor, key)+"="+formatValue(a.Value))
}

// qualify prefixes record attribute keys with the handler's open groups.
func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" || isScope(a.Key) {
		return a
	}
	a.Key = h.prefix + a.Key
	return a
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func isScope(key string) bool {
	for _, k := range scopeKeys {
		if key == k {
			return true
		}
	}
	return false
}

// WithAttrs returns a new Handler with the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newH := *h
	newH.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newH.attrs = append(newH.attrs, h.attrs...)
	for _, a := range attrs {
		newH.attrs = append(newH.attrs, h.qualify(a))
	}
	return &newH
}

// WithGroup returns a new Handler whose subsequent attribute keys are
// prefixed with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newH := *h
	newH.prefix = h.prefix + name + "."
	return &newH
}

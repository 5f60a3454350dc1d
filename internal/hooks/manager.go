package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/logging"
)

// Result is the outcome of one executed action.
type Result struct {
	Success       bool
	ExecutionTime time.Duration
	Output        string
	Error         string
	// Action is the action's String description.
	Action string
}

// ExecutionTimeMS returns the execution time in whole milliseconds.
func (r Result) ExecutionTimeMS() int64 {
	return r.ExecutionTime.Milliseconds()
}

// Source supplies global hooks and hook settings.
type Source interface {
	GlobalHooks(phase Phase) []Action
	HooksConfig() Config
}

// Manager runs batches of actions for one lifecycle phase.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a Manager that logs to logger. A nil logger uses
// slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// ExecuteHooks runs actions in order and returns one Result per action.
// Every action is attempted regardless of earlier failures. An empty batch
// returns immediately without logging.
func (m *Manager) ExecuteHooks(ctx context.Context, actions []Action, phase Phase, hctx Context) []Result {
	if len(actions) == 0 {
		return nil
	}

	scope := " (global)"
	if hctx.PluginName != "" {
		scope = fmt.Sprintf(" for plugin '%s'", hctx.PluginName)
	}

	m.logger.InfoContext(ctx, fmt.Sprintf("executing %s hooks%s", phase, scope), "count", len(actions))

	// Actions log through the context; keep them on this manager's logger.
	ctx = logging.NewContext(ctx, m.logger)

	total := len(actions)
	results := make([]Result, 0, total)
	var elapsed time.Duration

	for i, action := range actions {
		desc := action.String()
		m.logger.InfoContext(ctx, fmt.Sprintf("[%d/%d] starting %s hook: %s", i+1, total, phase, desc))

		start := time.Now()
		output, err := action.Execute(ctx, hctx)
		took := time.Since(start)
		elapsed += took

		result := Result{
			Success:       err == nil,
			ExecutionTime: took,
			Output:        output,
			Action:        desc,
		}

		if err != nil {
			result.Error = err.Error()
			m.logger.ErrorContext(ctx, fmt.Sprintf("[%d/%d] %s hook failed: %s", i+1, total, phase, desc),
				"duration_ms", took.Milliseconds(), "error", result.Error)
		} else {
			m.logger.InfoContext(ctx, fmt.Sprintf("[%d/%d] %s hook completed: %s", i+1, total, phase, desc),
				"duration_ms", took.Milliseconds())
			if out := strings.TrimSpace(output); out != "" && len(output) < 200 {
				m.logger.DebugContext(ctx, "hook output", "output", out)
			}
		}

		results = append(results, result)
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	if succeeded == total {
		m.logger.InfoContext(ctx, fmt.Sprintf("all %d %s hooks%s completed successfully", total, phase, scope),
			"total_ms", elapsed.Milliseconds())
	} else {
		m.logger.WarnContext(ctx, fmt.Sprintf("%d/%d %s hooks%s completed successfully", succeeded, total, phase, scope),
			"total_ms", elapsed.Milliseconds())
	}

	return results
}

// ValidateHooks validates each action without executing any of them.
// The returned slice has one entry per action; nil means valid.
func (m *Manager) ValidateHooks(actions []Action, hctx Context) []error {
	errs := make([]error, len(actions))
	for i, action := range actions {
		errs[i] = action.Validate(hctx)
	}
	return errs
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

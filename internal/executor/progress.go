package executor

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Status is the execution state of one plugin within a run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	// StatusTimeout marks a plugin still running past the stuck threshold.
	StatusTimeout
)

var statusNames = [...]string{"pending", "running", "completed", "failed", "timeout"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// PluginStatus is a snapshot of one plugin's progress.
type PluginStatus struct {
	Status    Status
	StartedAt time.Time
	// Duration is set once the plugin has finished.
	Duration time.Duration
	Error    string

	slowReported bool
}

// ProgressConfig controls how running plugins are watched.
type ProgressConfig struct {
	PollInterval   time.Duration
	SlowThreshold  time.Duration
	StuckThreshold time.Duration
}

// DefaultProgressConfig polls every 2s, calls a plugin slow after 10s and
// stuck after 60s.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		PollInterval:   2 * time.Second,
		SlowThreshold:  10 * time.Second,
		StuckThreshold: 60 * time.Second,
	}
}

// Progress tracks the status of every plugin in a run. It is safe for
// concurrent use.
type Progress struct {
	cfg    ProgressConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	statuses map[string]PluginStatus
}

// NewProgress creates a tracker for the named plugins, all pending.
func NewProgress(cfg ProgressConfig, logger *slog.Logger, names ...string) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Progress{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		statuses: make(map[string]PluginStatus, len(names)),
	}
	for _, name := range names {
		p.statuses[name] = PluginStatus{Status: StatusPending}
	}
	return p
}

// Start marks name as running.
func (p *Progress) Start(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[name] = PluginStatus{Status: StatusRunning, StartedAt: p.now()}
}

// Complete marks name as finished successfully.
func (p *Progress) Complete(name string) {
	d := p.finish(name, StatusCompleted, "")
	p.logger.Debug("plugin finished", "plugin", name, "duration", d)
}

// Fail marks name as finished with an error.
func (p *Progress) Fail(name, reason string) {
	d := p.finish(name, StatusFailed, reason)
	p.logger.Debug("plugin failed", "plugin", name, "duration", d, "error", reason)
}

func (p *Progress) finish(name string, status Status, reason string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.statuses[name]
	if !st.StartedAt.IsZero() {
		st.Duration = p.now().Sub(st.StartedAt)
	}
	st.Status = status
	st.Error = reason
	p.statuses[name] = st
	return st.Duration
}

// Status returns the current status of name.
func (p *Progress) Status(name string) (PluginStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.statuses[name]
	return st, ok
}

// Statuses returns a copy of every plugin's status.
func (p *Progress) Statuses() map[string]PluginStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.statuses)
}

// Counts tallies plugins by status.
func (p *Progress) Counts() map[Status]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[Status]int)
	for _, st := range p.statuses {
		counts[st.Status]++
	}
	return counts
}

// Running reports whether any plugin has started but not finished.
func (p *Progress) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, st := range p.statuses {
		if st.Status == StatusRunning || st.Status == StatusTimeout {
			return true
		}
	}
	return false
}

// Watch polls running plugins until ctx is done. A plugin is logged once
// when it passes the slow threshold and once more when it passes the stuck
// threshold, at which point it is marked StatusTimeout.
func (p *Progress) Watch(ctx context.Context) {
	if p.cfg.PollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *Progress) check() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for name, st := range p.statuses {
		if st.Status != StatusRunning {
			continue
		}
		elapsed := now.Sub(st.StartedAt)
		switch {
		case p.cfg.StuckThreshold > 0 && elapsed >= p.cfg.StuckThreshold:
			st.Status = StatusTimeout
			p.logger.Warn("plugin appears stuck", "plugin", name, "running", elapsed.Round(100*time.Millisecond))
		case p.cfg.SlowThreshold > 0 && elapsed >= p.cfg.SlowThreshold && !st.slowReported:
			st.slowReported = true
			p.logger.Info("plugin is taking longer than expected", "plugin", name, "running", elapsed.Round(100*time.Millisecond))
		default:
			continue
		}
		p.statuses[name] = st
	}
}

package doctor

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Check is one diagnostic. Run reports a single result, however many
// problems it finds.
type Check interface {
	Name() string
	// Category groups checks in reports and for --category.
	Category() string
	Run(ctx context.Context) *CheckResult
}

// Runner runs checks in registration order.
type Runner struct {
	checks     []Check
	categories []string
	now        func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCategories restricts the runner to checks in the given categories.
// No categories means every check runs.
func WithCategories(categories ...string) RunnerOption {
	return func(r *Runner) { r.categories = categories }
}

// NewRunner returns an empty Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddCheck registers c. Checks outside the runner's categories are dropped.
func (r *Runner) AddCheck(c Check) {
	if len(r.categories) > 0 && !slices.Contains(r.categories, c.Category()) {
		return
	}
	r.checks = append(r.checks, c)
}

// Len returns the number of registered checks.
func (r *Runner) Len() int { return len(r.checks) }

// Run executes the checks and tallies their results. Once ctx is done no
// further check starts. A check that panics is reported as an error.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{
		Timestamp: r.now().UTC(),
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}

	for _, c := range r.checks {
		if ctx.Err() != nil {
			break
		}
		start := r.now()
		res := runCheck(ctx, c)
		res.Duration = r.now().Sub(start)
		report.add(res)
	}
	return report
}

func runCheck(ctx context.Context, c Check) (res *CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			res = &CheckResult{
				Name:     c.Name(),
				Category: c.Category(),
				Status:   SeverityError,
				Message:  fmt.Sprintf("check panicked: %v", p),
			}
		}
	}()
	res = c.Run(ctx)
	if res == nil {
		res = &CheckResult{Name: c.Name(), Category: c.Category(), Status: SeverityError, Message: "check returned no result"}
	}
	return res
}

// Fix applies every fix the registered checks offer. Call it after Run;
// run again afterwards to confirm.
func (r *Runner) Fix() []FixResult {
	var results []FixResult
	for _, c := range r.checks {
		if f, ok := c.(Fixer); ok && f.CanFix() {
			results = append(results, f.Fix()...)
		}
	}
	return results
}

// Report is the outcome of one Run.
type Report struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Results   []*CheckResult `json:"results" yaml:"results"`
	Summary   Summary        `json:"summary" yaml:"summary"`
}

func (r *Report) add(res *CheckResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case SeverityPass:
		r.Summary.Passed++
	case SeverityInfo:
		r.Summary.Info++
	case SeverityWarning:
		r.Summary.Warnings++
	case SeverityError:
		r.Summary.Errors++
	}
}

// HasErrors reports whether any check failed.
func (r *Report) HasErrors() bool { return r.Summary.Errors > 0 }

// HasWarnings reports whether any check warned.
func (r *Report) HasWarnings() bool { return r.Summary.Warnings > 0 }

// Worst returns the most severe status in the report.
func (r *Report) Worst() Severity {
	worst := SeverityPass
	for _, res := range r.Results {
		worst = max(worst, res.Status)
	}
	return worst
}

// Package doctor runs diagnostic checks against a dotsnapshot setup: the
// configuration file, the directories it writes to, plugin availability
// and the integrity of the latest snapshot.
package doctor

import (
	"strings"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Severity orders check outcomes from pass to error.
type Severity int

const (
	SeverityPass Severity = iota
	// SeverityInfo is worth knowing but not a problem.
	SeverityInfo
	// SeverityWarning is a problem dotsnapshot can work around.
	SeverityWarning
	// SeverityError stops snapshots or restores from working.
	SeverityError
)

var severityNames = [...]string{"pass", "info", "warning", "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name, ignoring case.
func (s *Severity) UnmarshalText(text []byte) error {
	for i, name := range severityNames {
		if strings.EqualFold(string(text), name) {
			*s = Severity(i)
			return nil
		}
	}
	return errors.Newf("unknown severity %q", text)
}

// CheckResult is what one check found.
type CheckResult struct {
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"category" yaml:"category"`
	Status   Severity `json:"status" yaml:"status"`
	Message  string   `json:"message" yaml:"message"`

	// Details holds check-specific data, such as the offending paths.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`

	// Fixable reports whether doctor --fix can resolve the problem.
	Fixable bool   `json:"fixable,omitempty" yaml:"fixable,omitempty"`
	FixHint string `json:"fix_hint,omitempty" yaml:"fix_hint,omitempty"`

	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// Summary counts results by status.
type Summary struct {
	Passed   int `json:"passed" yaml:"passed"`
	Info     int `json:"info" yaml:"info"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
}

package validator

import (
	"fmt"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Severity represents the impact of a validation issue.
type Severity int

const (
	// SeverityError fails validation.
	SeverityError Severity = iota
	// SeverityWarning is reported but does not fail validation.
	SeverityWarning
	// SeverityInfo is an informational note.
	SeverityInfo
)

var severityNames = [...]string{"error", "warning", "info"}

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

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	for i, name := range severityNames {
		if string(text) == name {
			*s = Severity(i)
			return nil
		}
	}
	return errors.Newf("unknown severity %q", text)
}

// Issue is a single problem found in the configuration.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`

	// Field is the configuration path of the problem, such as
	// "plugins.vscode_settings.hooks.post-plugin[0]".
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	Message string `json:"message" yaml:"message"`

	// Value is the offending value, when there is one.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Plugin, Phase and Action locate hook issues.
	Plugin string `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Phase  string `json:"phase,omitempty" yaml:"phase,omitempty"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	var sb strings.Builder
	sb.WriteString(i.Severity.String())
	sb.WriteString(": ")
	if i.Field != "" {
		sb.WriteString(i.Field)
		sb.WriteString(": ")
	}
	sb.WriteString(i.Message)
	if i.Value != nil {
		fmt.Fprintf(&sb, " (got %v)", i.Value)
	}
	return sb.String()
}

// Result aggregates validation issues in the order they were found.
type Result struct {
	Issues []Issue `json:"issues" yaml:"issues"`
}

// Add appends an issue.
func (r *Result) Add(i Issue) {
	r.Issues = append(r.Issues, i)
}

// AddError adds an error for field.
func (r *Result) AddError(field, message string, value any) {
	r.Add(Issue{Severity: SeverityError, Field: field, Message: message, Value: value})
}

// AddWarning adds a warning for field.
func (r *Result) AddWarning(field, message string, value any) {
	r.Add(Issue{Severity: SeverityWarning, Field: field, Message: message, Value: value})
}

// AddInfo adds an informational note for field.
func (r *Result) AddInfo(field, message string, value any) {
	r.Add(Issue{Severity: SeverityInfo, Field: field, Message: message, Value: value})
}

// Merge appends every issue of other.
func (r *Result) Merge(other *Result) {
	if other != nil {
		r.Issues = append(r.Issues, other.Issues...)
	}
}

// Filter returns the issues with severity s.
func (r *Result) Filter(s Severity) []Issue {
	if r == nil {
		return nil
	}
	var res []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			res = append(res, i)
		}
	}
	return res
}

// Errors returns the issues that fail validation.
func (r *Result) Errors() []Issue { return r.Filter(SeverityError) }

// Warnings returns the warnings.
func (r *Result) Warnings() []Issue { return r.Filter(SeverityWarning) }

// HasErrors reports whether validation failed.
func (r *Result) HasErrors() bool { return len(r.Errors()) > 0 }

// HasWarnings reports whether any warning was found.
func (r *Result) HasWarnings() bool { return len(r.Warnings()) > 0 }

package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Format specifies the output format for validation reports.
type Format string

const (
	// FormatText produces human-readable text output.
	FormatText Format = "text"
	// FormatJSON produces machine-readable JSON output.
	FormatJSON Format = "json"
	// FormatYAML produces YAML output.
	FormatYAML Format = "yaml"
)

// maxValueWidth bounds values printed in text reports.
const maxValueWidth = 50

// ParseFormat returns the Format named by s. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Mark(errors.Newf("unknown output format %q", s), errors.ErrValidation)
	}
}

// Reporter writes validation results.
type Reporter struct {
	out    io.Writer
	format Format
}

// NewReporter creates a Reporter writing format to out.
func NewReporter(out io.Writer, format Format) *Reporter {
	return &Reporter{out: out, format: format}
}

// Report writes result. Structured formats always carry an issues list,
// empty when nothing was found.
func (r *Reporter) Report(result *Result) error {
	if result == nil {
		result = &Result{}
	}
	if result.Issues == nil && r.format != FormatText {
		result = &Result{Issues: []Issue{}}
	}

	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(result), "encoding JSON report")
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return errors.Wrap(err, "encoding YAML report")
		}
		return errors.Wrap(enc.Close(), "encoding YAML report")
	default:
		r.reportText(result)
		return nil
	}
}

// reportText prints a summary line followed by errors, warnings and notes.
func (r *Reporter) reportText(result *Result) {
	errs := result.Errors()
	warnings := result.Warnings()
	notes := result.Filter(SeverityInfo)

	switch {
	case len(errs) > 0:
		summary := []string{color.RedString("%d error(s)", len(errs))}
		if len(warnings) > 0 {
			summary = append(summary, color.YellowString("%d warning(s)", len(warnings)))
		}
		fmt.Fprintf(r.out, "Validation failed: %s\n", strings.Join(summary, ", "))
	case len(warnings) > 0:
		fmt.Fprintf(r.out, "%s with %s\n", color.GreenString("✓ Validation passed"), color.YellowString("%d warning(s)", len(warnings)))
	default:
		fmt.Fprintln(r.out, color.GreenString("✓ Validation passed"))
	}

	r.section("Errors", errs, color.FgRed)
	r.section("Warnings", warnings, color.FgYellow)
	r.section("Notes", notes, color.FgHiBlack)
}

func (r *Reporter) section(title string, issues []Issue, c color.Attribute) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(r.out, "\n%s:\n", title)
	for _, i := range issues {
		r.printIssue(i, c)
	}
}

// printIssue writes one line:
//
//	• field: message (plugin=x, phase=y, action=z) [value]
func (r *Reporter) printIssue(i Issue, c color.Attribute) {
	gray := color.New(color.FgHiBlack)

	var sb strings.Builder
	sb.WriteString("  • ")
	if i.Field != "" {
		sb.WriteString(color.New(c).Sprint(i.Field))
		sb.WriteString(": ")
	}
	sb.WriteString(i.Message)

	var where []string
	for _, kv := range [][2]string{{"plugin", i.Plugin}, {"phase", i.Phase}, {"action", i.Action}} {
		if kv[1] != "" {
			where = append(where, kv[0]+"="+kv[1])
		}
	}
	if len(where) > 0 {
		sb.WriteString(" ")
		sb.WriteString(gray.Sprintf("(%s)", strings.Join(where, ", ")))
	}

	if i.Value != nil {
		v := fmt.Sprint(i.Value)
		if len(v) > maxValueWidth {
			v = v[:maxValueWidth-3] + "..."
		}
		sb.WriteString(gray.Sprintf(" [%s]", v))
	}

	fmt.Fprintln(r.out, sb.String())
}

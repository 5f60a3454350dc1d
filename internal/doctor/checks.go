package doctor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// ConfigCheck validates the configuration file: TOML syntax, unknown keys
// and the same rules config.Validate applies on load.
type ConfigCheck struct {
	path string
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck creates a check for the configuration file at path. An
// empty path means no file was found and the defaults are in use.
func NewConfigCheck(path string) *ConfigCheck {
	return &ConfigCheck{path: path}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string {
	return "config-file"
}

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string {
	return "config"
}

// Run executes the configuration check.
func (c *ConfigCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.path},
	}

	if c.path == "" {
		result.Status = SeverityInfo
		result.Message = "no configuration file found; using defaults"
		result.FixHint = "run: dotsnapshot config init"
		return result
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot read %s: %v", c.path, err)
		return result
	}

	var cfg config.Config
	var unknown []string
	strict := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := strict.Decode(&cfg); err != nil {
		var missing *toml.StrictMissingError
		if !errors.As(err, &missing) {
			result.Status = SeverityError
			result.Message = formatTOMLError(err)
			result.FixHint = "run: dotsnapshot config edit"
			return result
		}
		for _, e := range missing.Errors {
			unknown = append(unknown, strings.Join(e.Key(), "."))
		}
		cfg = config.Config{}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			result.Status = SeverityError
			result.Message = formatTOMLError(err)
			return result
		}
	}

	if errs := config.Validate(&cfg); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d configuration error(s)", len(errs))
		result.Details["errors"] = msgs
		result.FixHint = "run: dotsnapshot config validate"
		return result
	}

	if len(unknown) > 0 {
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d unknown key(s) are ignored", len(unknown))
		result.Details["unknown_keys"] = unknown
		result.FixHint = "check for typos in " + c.path
		return result
	}

	result.Status = SeverityPass
	result.Message = c.path + " is valid"
	return result
}

// formatTOMLError extracts position information from TOML decode errors.
func formatTOMLError(err error) string {
	// go-toml/v2 DecodeError includes line/column via Position() method
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("TOML syntax error at line %d, column %d: %s",
			row, col, decodeErr.Error())
	}

	return fmt.Sprintf("TOML error: %v", err)
}

// Target is a path the permission check inspects.
type Target struct {
	// Name labels the path in output, usually its configuration key.
	Name string

	// Path is the file or directory to inspect.
	Path string

	// Dir reports whether Path should be a directory.
	Dir bool

	// Private marks paths that may hold credentials, such as snapshot
	// and backup directories holding copies of ~/.npmrc.
	Private bool

	// MustWrite marks directories dotsnapshot writes to.
	MustWrite bool
}

// PermissionCheck validates paths and permissions of the configuration
// file and the directories dotsnapshot writes to. Missing paths are not an
// issue; they are created on first use.
type PermissionCheck struct {
	PermissionFixer
	targets []Target
}

var (
	_ Check = (*PermissionCheck)(nil)
	_ Fixer = (*PermissionCheck)(nil)
)

// NewPermissionCheck creates a permission check over targets.
func NewPermissionCheck(targets ...Target) *PermissionCheck {
	return &PermissionCheck{targets: targets}
}

// Name returns the unique identifier for this check.
func (c *PermissionCheck) Name() string {
	return "path-permissions"
}

// Category returns the grouping for this check.
func (c *PermissionCheck) Category() string {
	return "filesystem"
}

// Run executes the path and permission diagnostic check.
func (c *PermissionCheck) Run(context.Context) *CheckResult {
	var issues []pathIssue
	checked := 0

	for _, t := range c.targets {
		if t.Path == "" {
			continue
		}
		if t.Dir {
			issues = append(issues, c.checkDirectory(t)...)
		} else {
			issues = append(issues, c.checkFile(t)...)
		}
		checked++
	}

	c.setIssues(issues)
	return c.buildResult(issues, checked)
}

// pathIssue represents a single path or permission problem.
type pathIssue struct {
	Path        string
	Name        string
	Type        string // "file" or "directory"
	Problem     string
	Severity    Severity
	Permissions string // octal representation if available
	Fixable     bool
	FixHint     string
	TargetPerm  os.FileMode
}

// checkFile validates a file path and permissions.
func (c *PermissionCheck) checkFile(t Target) []pathIssue {
	info, err := os.Stat(t.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return []pathIssue{{
			Path:     t.Path,
			Name:     t.Name,
			Type:     "file",
			Problem:  fmt.Sprintf("cannot stat file: %v", err),
			Severity: SeverityError,
		}}
	}
	if info.IsDir() {
		return []pathIssue{{
			Path:     t.Path,
			Name:     t.Name,
			Type:     "file",
			Problem:  "expected file but found directory",
			Severity: SeverityError,
		}}
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return []pathIssue{{
			Path:        t.Path,
			Name:        t.Name,
			Type:        "file",
			Problem:     "file is not readable",
			Severity:    SeverityError,
			Permissions: formatPermissions(info.Mode()),
			FixHint:     "chmod u+r " + t.Path,
		}}
	}
	f.Close()

	// Unix permissions don't apply on Windows
	if runtime.GOOS == "windows" {
		return nil
	}
	return c.checkPermissions(t, "file", info.Mode(), secureFilePerm)
}

// checkDirectory validates a directory path and permissions.
func (c *PermissionCheck) checkDirectory(t Target) []pathIssue {
	info, err := os.Stat(t.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return []pathIssue{{
			Path:     t.Path,
			Name:     t.Name,
			Type:     "directory",
			Problem:  fmt.Sprintf("cannot stat directory: %v", err),
			Severity: SeverityError,
		}}
	}
	if !info.IsDir() {
		return []pathIssue{{
			Path:     t.Path,
			Name:     t.Name,
			Type:     "directory",
			Problem:  "expected directory but found file",
			Severity: SeverityError,
		}}
	}

	var issues []pathIssue
	if t.MustWrite {
		if writable, err := isDirectoryWritable(t.Path); err != nil || !writable {
			issues = append(issues, pathIssue{
				Path:        t.Path,
				Name:        t.Name,
				Type:        "directory",
				Problem:     "directory is not writable",
				Severity:    SeverityError,
				Permissions: formatPermissions(info.Mode()),
				FixHint:     "chmod u+w " + t.Path,
			})
		}
	}

	if runtime.GOOS != "windows" {
		issues = append(issues, c.checkPermissions(t, "directory", info.Mode(), secureDirPerm)...)
	}
	return issues
}

// checkPermissions flags world-writable paths and, for private targets,
// paths other users can read.
func (c *PermissionCheck) checkPermissions(t Target, kind string, mode os.FileMode, public os.FileMode) []pathIssue {
	var issues []pathIssue
	perm := mode.Perm()

	target := public
	if t.Private {
		target = privatePerm(kind)
	}

	if perm&0o002 != 0 {
		issues = append(issues, pathIssue{
			Path:        t.Path,
			Name:        t.Name,
			Type:        kind,
			Problem:     kind + " is world-writable (security risk)",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(mode),
			Fixable:     true,
			FixHint:     fmt.Sprintf("chmod %s %s", formatOctal(target), t.Path),
			TargetPerm:  target,
		})
		return issues
	}

	if t.Private && perm&0o077 != 0 {
		issues = append(issues, pathIssue{
			Path:        t.Path,
			Name:        t.Name,
			Type:        kind,
			Problem:     fmt.Sprintf("%s is readable by other users and may hold credentials (mode %s)", kind, formatPermissions(mode)),
			Severity:    SeverityInfo,
			Permissions: formatPermissions(mode),
			Fixable:     true,
			FixHint:     fmt.Sprintf("chmod %s %s", formatOctal(target), t.Path),
			TargetPerm:  target,
		})
	}

	return issues
}

// isDirectoryWritable tests if a directory is writable by creating a temp file.
func isDirectoryWritable(path string) (bool, error) {
	tmpFile, err := os.CreateTemp(path, ".dotsnapshot-doctor-*")
	if err != nil {
		return false, err
	}

	tmpPath := tmpFile.Name()
	tmpFile.Close()
	os.Remove(tmpPath)

	return true, nil
}

// buildResult constructs the final CheckResult from accumulated issues.
func (c *PermissionCheck) buildResult(issues []pathIssue, checked int) *CheckResult {
	if len(issues) == 0 {
		return &CheckResult{
			Name:     c.Name(),
			Category: c.Category(),
			Status:   SeverityPass,
			Message:  fmt.Sprintf("all %d paths have valid permissions", checked),
		}
	}

	highest := SeverityPass
	for _, issue := range issues {
		highest = max(highest, issue.Severity)
	}

	issueDetails := make([]map[string]any, 0, len(issues))
	var fixHints []string
	fixable := false
	for _, issue := range issues {
		m := map[string]any{
			"path":     issue.Path,
			"name":     issue.Name,
			"type":     issue.Type,
			"problem":  issue.Problem,
			"severity": issue.Severity.String(),
		}
		if issue.Permissions != "" {
			m["permissions"] = issue.Permissions
		}
		if issue.FixHint != "" {
			m["fix_hint"] = issue.FixHint
		}
		issueDetails = append(issueDetails, m)

		if issue.Fixable {
			fixable = true
			if issue.FixHint != "" {
				fixHints = append(fixHints, issue.FixHint)
			}
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   highest,
		Message:  fmt.Sprintf("found %d permission issue(s) across %d paths", len(issues), checked),
		Details: map[string]any{
			"checked_paths": checked,
			"issue_count":   len(issues),
			"issues":        issueDetails,
		},
		Fixable: fixable,
	}
	if len(fixHints) > 0 {
		result.FixHint = strings.Join(fixHints, "; ")
	}
	return result
}

// formatPermissions returns a human-readable permission string (e.g., "0644").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

// formatOctal returns the octal representation of a file mode.
func formatOctal(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode)
}

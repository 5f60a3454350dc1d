package doctor

import (
	"fmt"
	"os"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Fixer is implemented by checks that can repair what they found.
// CanFix and Fix act on the findings of the last Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult records one attempted repair.
type FixResult struct {
	Path        string `json:"path" yaml:"path"`
	Fixed       bool   `json:"fixed" yaml:"fixed"`
	Description string `json:"description" yaml:"description"`
	Error       error  `json:"-" yaml:"-"`
}

// Modes applied by fixes. Private paths may hold copies of credentials.
const (
	secureFilePerm  os.FileMode = 0o644
	secureDirPerm   os.FileMode = 0o755
	privateFilePerm os.FileMode = 0o600
	privateDirPerm  os.FileMode = 0o700
)

func privatePerm(kind string) os.FileMode {
	if kind == "directory" {
		return privateDirPerm
	}
	return privateFilePerm
}

func publicPerm(kind string) os.FileMode {
	if kind == "directory" {
		return secureDirPerm
	}
	return secureFilePerm
}

// PermissionFixer chmods the fixable paths found by PermissionCheck.
type PermissionFixer struct {
	issues []pathIssue
}

// CanFix reports whether the last run found a fixable path.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// CountFixable returns the number of fixable paths.
func (f *PermissionFixer) CountFixable() int {
	n := 0
	for _, issue := range f.issues {
		if issue.Fixable {
			n++
		}
	}
	return n
}

// Fix chmods every fixable path and clears the findings, so a second Fix
// without a Run does nothing.
func (f *PermissionFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.CountFixable())
	for _, issue := range f.issues {
		if issue.Fixable {
			results = append(results, chmodIssue(issue))
		}
	}
	f.issues = nil
	return results
}

func chmodIssue(issue pathIssue) FixResult {
	perm := issue.TargetPerm
	if perm == 0 {
		perm = publicPerm(issue.Type)
	}
	if err := os.Chmod(issue.Path, perm); err != nil {
		return FixResult{
			Path:        issue.Path,
			Description: fmt.Sprintf("chmod %04o failed: %v", perm, err),
			Error:       errors.Wrapf(err, "chmod %04o %s", perm, issue.Path),
		}
	}
	return FixResult{Path: issue.Path, Fixed: true, Description: fmt.Sprintf("chmod %04o", perm)}
}

func (f *PermissionFixer) setIssues(issues []pathIssue) {
	f.issues = issues
}

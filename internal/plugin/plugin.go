package plugin

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

// Plugin captures and restores one configuration domain.
// Implementations must be safe to call from multiple goroutines.
type Plugin interface {
	// Description is a one-line summary shown by `dotsnapshot plugins`.
	Description() string

	// Execute returns the plugin's content. snapshotDir is the directory of
	// the snapshot being created.
	Execute(ctx context.Context, snapshotDir string) (string, error)

	// Validate reports whether the plugin can run on this machine.
	Validate(ctx context.Context) error

	// TargetPath is a directory, relative to the snapshot root, that holds
	// the output file. Empty means the snapshot root.
	TargetPath() string

	// OutputFile overrides the output filename. Empty means "<name>.txt".
	OutputFile() string

	// RestoreTargetDir overrides where restored files are written.
	// Empty means the user's home directory.
	RestoreTargetDir() string

	// Hooks returns the plugin-specific actions for phase.
	Hooks(phase hooks.Phase) []hooks.Action

	// CreatesOwnOutputFiles reports whether Execute writes its own files,
	// in which case the executor does not write the returned content.
	CreatesOwnOutputFiles() bool

	// Restore copies snapshotPath back to targetPath and returns the paths
	// that were (or, when dryRun is set, would be) written.
	Restore(ctx context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error)
}

// Settings holds the per-plugin overrides read from configuration.
type Settings struct {
	TargetPath       string
	OutputFile       string
	RestoreTargetDir string
	Hooks            map[hooks.Phase][]hooks.Action
}

// Base implements the optional parts of Plugin from Settings.
// Embed it and implement Description, Execute and Validate.
type Base struct {
	Settings Settings
}

// TargetPath implements Plugin.
func (b Base) TargetPath() string { return b.Settings.TargetPath }

// OutputFile implements Plugin.
func (b Base) OutputFile() string { return b.Settings.OutputFile }

// RestoreTargetDir implements Plugin.
func (b Base) RestoreTargetDir() string { return b.Settings.RestoreTargetDir }

// Hooks implements Plugin.
func (b Base) Hooks(phase hooks.Phase) []hooks.Action { return b.Settings.Hooks[phase] }

// CreatesOwnOutputFiles implements Plugin. It returns false.
func (Base) CreatesOwnOutputFiles() bool { return false }

// Restore implements Plugin as a no-op.
func (Base) Restore(context.Context, string, string, bool) ([]string, error) {
	return nil, nil
}

// DefaultOutputFile returns the filename used when a plugin does not set one.
func DefaultOutputFile(name string) string {
	return name + ".txt"
}

// OutputFile returns the filename p writes its content to.
func OutputFile(p Plugin, name string) string {
	if f := p.OutputFile(); f != "" {
		return f
	}
	return DefaultOutputFile(name)
}

// OutputPath returns the slash-separated path of p's output file relative
// to the snapshot root.
func OutputPath(p Plugin, name string) string {
	return filepath.ToSlash(filepath.Join(p.TargetPath(), OutputFile(p, name)))
}

// RestoreTarget resolves where p restores to. override wins when set, then
// the plugin's own RestoreTargetDir, then the home directory.
func RestoreTarget(p Plugin, override string) string {
	switch {
	case override != "":
		return paths.ExpandHome(override)
	case p.RestoreTargetDir() != "":
		return paths.ExpandHome(p.RestoreTargetDir())
	default:
		return paths.Home()
	}
}

// Category derives a display category from a plugin name: the segment
// before the first underscore, title-cased ("vscode_settings" → "Vscode").
func Category(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if prefix == "" {
		return ""
	}
	return strings.ToUpper(prefix[:1]) + strings.ToLower(prefix[1:])
}

package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
)

// Validation errors for configuration fields.
var (
	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidConcurrency indicates max_concurrency is negative.
	ErrInvalidConcurrency = errors.New("max_concurrency must be >= 0")

	// ErrInvalidPhase indicates a hook list is keyed by an unknown or
	// disallowed phase.
	ErrInvalidPhase = errors.New("invalid hook phase")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.MaxConcurrency < 0 {
		errs = append(errs, ErrInvalidConcurrency)
	}

	for _, f := range []struct{ field, path string }{
		{"output_dir", cfg.OutputDir},
		{"hooks.scripts_dir", cfg.Hooks.ScriptsDir},
		{"backup.dir", cfg.Backup.Dir},
	} {
		if err := validatePath(f.path); err != nil {
			errs = append(errs, &PathError{Field: f.field, Path: f.path, Err: err})
		}
	}

	for i, file := range cfg.StaticFiles.Files {
		if strings.TrimSpace(file) == "" {
			errs = append(errs, &PathError{Field: fmt.Sprintf("static_files.files[%d]", i), Path: file, Err: ErrInvalidPath})
			continue
		}
		if err := validatePath(file); err != nil {
			errs = append(errs, &PathError{Field: fmt.Sprintf("static_files.files[%d]", i), Path: file, Err: err})
		}
	}

	errs = append(errs, validateHooks("", cfg.Global.Hooks, GlobalPhases())...)

	names := make([]string, 0, len(cfg.Plugins))
	for name := range cfg.Plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		pc := cfg.Plugins[name]
		errs = append(errs, validateHooks(name, pc.Hooks, PluginPhases())...)
		if pc.TargetPath != "" && (filepath.IsAbs(pc.TargetPath) || strings.HasPrefix(filepath.Clean(pc.TargetPath), "..")) {
			errs = append(errs, &PathError{Field: "plugins." + name + ".target_path", Path: pc.TargetPath, Err: ErrInvalidPath})
		}
	}

	return errs
}

// validateHooks checks every hook spec of one scope. Phases are visited
// in lifecycle order so errors are reported deterministically.
func validateHooks(scope string, byPhase map[string][]hooks.Spec, allowed []hooks.Phase) []error {
	var errs []error

	keys := make([]string, 0, len(byPhase))
	for k := range byPhase {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		phase, err := hooks.ParsePhase(key)
		if err != nil || !slices.Contains(allowed, phase) {
			errs = append(errs, &HookError{Scope: scope, Phase: key, Index: -1, Err: ErrInvalidPhase})
			continue
		}
		for i, spec := range byPhase[key] {
			if _, err := spec.Action(); err != nil {
				errs = append(errs, &HookError{Scope: scope, Phase: key, Index: i, Err: err})
			}
		}
	}
	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	// Check for null bytes which are never valid in paths
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	// Clean the path and check it's not empty after cleaning
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// HookError represents an invalid hook entry.
type HookError struct {
	// Scope is the plugin name, or "" for global hooks.
	Scope string
	Phase string
	// Index is the position in the phase's list, or -1 when the phase
	// itself is invalid.
	Index int
	Err   error
}

func (e *HookError) Error() string {
	where := "global"
	if e.Scope != "" {
		where = "plugin " + e.Scope
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s hooks: %s: %s", where, e.Err.Error(), e.Phase)
	}
	return fmt.Sprintf("%s %s hook #%d: %s", where, e.Phase, e.Index+1, e.Err.Error())
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}

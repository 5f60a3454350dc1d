package hooks

import (
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/paths"
)

// Config holds the settings hooks need to resolve paths.
type Config struct {
	// ScriptsDir is the directory relative script commands resolve against.
	// A leading "~" is expanded.
	ScriptsDir string
}

// DefaultConfig returns a Config using the XDG scripts directory.
func DefaultConfig() Config {
	return Config{ScriptsDir: paths.DefaultScriptsDir()}
}

// ResolveScriptPath returns the executable path for a script command.
// Absolute paths (after "~" expansion) are returned unchanged; anything else
// is joined to the scripts directory.
func (c Config) ResolveScriptPath(command string) string {
	expanded := paths.ExpandHome(command)
	if filepath.IsAbs(expanded) {
		return expanded
	}
	dir := c.ScriptsDir
	if dir == "" {
		dir = paths.DefaultScriptsDir()
	}
	return filepath.Join(paths.ExpandHome(dir), command)
}

// Context is the immutable bag of values available to one hook batch.
// The zero value is usable. Derive new contexts with the With* methods.
type Context struct {
	// PluginName is empty for global hooks.
	PluginName   string
	SnapshotName string
	SnapshotDir  string
	FileCount    int
	Variables    map[string]string
	Config       Config
}

// NewContext creates a context for the given snapshot.
func NewContext(snapshotName, snapshotDir string, cfg Config) Context {
	return Context{
		SnapshotName: snapshotName,
		SnapshotDir:  snapshotDir,
		Config:       cfg,
	}
}

// WithPlugin returns a copy of c attached to the named plugin.
func (c Context) WithPlugin(name string) Context {
	c.Variables = maps.Clone(c.Variables)
	c.PluginName = name
	return c
}

// WithFileCount returns a copy of c with the given file count.
func (c Context) WithFileCount(n int) Context {
	c.Variables = maps.Clone(c.Variables)
	c.FileCount = n
	return c
}

// WithVariable returns a copy of c with key set to value. The receiver's
// variables are not modified.
func (c Context) WithVariable(key, value string) Context {
	vars := make(map[string]string, len(c.Variables)+1)
	maps.Copy(vars, c.Variables)
	vars[key] = value
	c.Variables = vars
	return c
}

// Interpolate replaces {placeholders} in template with context values.
// Custom variables are applied after the built-in ones, in key order.
func (c Context) Interpolate(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}

	result := strings.ReplaceAll(template, "{snapshot_name}", c.SnapshotName)
	result = strings.ReplaceAll(result, "{snapshot_dir}", c.SnapshotDir)
	result = strings.ReplaceAll(result, "{file_count}", strconv.Itoa(c.FileCount))
	if c.PluginName != "" {
		result = strings.ReplaceAll(result, "{plugin_name}", c.PluginName)
	}

	for _, key := range slices.Sorted(maps.Keys(c.Variables)) {
		result = strings.ReplaceAll(result, "{"+key+"}", c.Variables[key])
	}

	return result
}

// env returns the DOTSNAPSHOT_* variables advertised to scripts.
func (c Context) env() []string {
	env := []string{
		"DOTSNAPSHOT_SNAPSHOT_NAME=" + c.SnapshotName,
		"DOTSNAPSHOT_SNAPSHOT_DIR=" + c.SnapshotDir,
	}
	if c.PluginName != "" {
		env = append(env, "DOTSNAPSHOT_PLUGIN_NAME="+c.PluginName)
	}
	return env
}

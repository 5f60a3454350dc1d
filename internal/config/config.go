// Package config provides configuration management for dotsnapshot using Viper.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "DOTSNAPSHOT"

// DefaultTimeFormat is the default log time layout.
const DefaultTimeFormat = "2006-01-02 15:04:05"

// Config represents the top-level configuration structure.
type Config struct {
	OutputDir      string                  `mapstructure:"output_dir" toml:"output_dir,omitempty"`
	IncludePlugins []string                `mapstructure:"include_plugins" toml:"include_plugins,omitempty"`
	MaxConcurrency int                     `mapstructure:"max_concurrency" toml:"max_concurrency,omitempty"`
	Logging        LoggingConfig           `mapstructure:"logging" toml:"logging"`
	Hooks          HooksConfig             `mapstructure:"hooks" toml:"hooks"`
	Global         GlobalConfig            `mapstructure:"global" toml:"global,omitempty"`
	Plugins        map[string]PluginConfig `mapstructure:"plugins" toml:"plugins,omitempty"`
	StaticFiles    StaticFilesConfig       `mapstructure:"static_files" toml:"static_files,omitempty"`
	Backup         BackupConfig            `mapstructure:"backup" toml:"backup"`

	// path is the file the configuration was loaded from, if any.
	path string
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Verbose    bool   `mapstructure:"verbose" toml:"verbose"`
	TimeFormat string `mapstructure:"time_format" toml:"time_format,omitempty"`
}

// HooksConfig holds settings shared by every hook.
type HooksConfig struct {
	ScriptsDir string `mapstructure:"scripts_dir" toml:"scripts_dir,omitempty"`
}

// GlobalConfig holds hooks that run once per snapshot or restore.
type GlobalConfig struct {
	Hooks map[string][]hooks.Spec `mapstructure:"hooks" toml:"hooks,omitempty"`
}

// PluginConfig overrides one plugin's placement and adds its hooks.
type PluginConfig struct {
	TargetPath       string                  `mapstructure:"target_path" toml:"target_path,omitempty"`
	OutputFile       string                  `mapstructure:"output_file" toml:"output_file,omitempty"`
	RestoreTargetDir string                  `mapstructure:"restore_target_dir" toml:"restore_target_dir,omitempty"`
	Hooks            map[string][]hooks.Spec `mapstructure:"hooks" toml:"hooks,omitempty"`
}

// StaticFilesConfig lists arbitrary files captured by the static_files plugin.
type StaticFilesConfig struct {
	Files  []string `mapstructure:"files" toml:"files,omitempty"`
	Ignore []string `mapstructure:"ignore" toml:"ignore,omitempty"`
}

// BackupConfig controls pre-restore backups.
type BackupConfig struct {
	Dir            string `mapstructure:"dir" toml:"dir,omitempty"`
	RetentionCount int    `mapstructure:"retention_count" toml:"retention_count,omitempty"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.Reset()

	viper.SetConfigType("toml")

	// Environment variable support
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("output_dir", paths.DefaultSnapshotsDir())
	viper.SetDefault("max_concurrency", 0)
	viper.SetDefault("logging.verbose", false)
	viper.SetDefault("logging.time_format", DefaultTimeFormat)
	viper.SetDefault("hooks.scripts_dir", paths.DefaultScriptsDir())
	viper.SetDefault("backup.dir", paths.DefaultBackupDir())
	viper.SetDefault("backup.retention_count", 10)
}

// SearchPaths returns the candidate configuration files in order of
// precedence. DOTSNAPSHOT_CONFIG, when set, comes first.
func SearchPaths() []string {
	var candidates []string
	if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
		candidates = append(candidates, paths.ExpandHome(env))
	}
	candidates = append(candidates,
		"dotsnapshot.toml",
		".dotsnapshot.toml",
		paths.DefaultConfigFile(),
	)
	if home := paths.Home(); home != "" {
		candidates = append(candidates, filepath.Join(home, ".dotsnapshot.toml"))
	}
	return candidates
}

// FindConfigFile returns the first existing file from SearchPaths, or ""
// when there is none.
func FindConfigFile() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// Load reads the configuration file and validates it.
// If path is provided, it reads from that specific file.
// If path is empty, it searches SearchPaths.
// Returns the loaded configuration or default values if no file is found (when path is empty).
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Mark(errors.Wrap(errs[0], "validating config"), errors.ErrInvalidConfig)
	}
	return cfg, nil
}

// Read is Load without validation, for reporting every problem at once.
func Read(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FindConfigFile()
	}

	if path != "" {
		path = paths.ExpandHome(path)
		viper.SetConfigFile(path)

		if err := viper.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) || isNotFound(err) {
				if explicit {
					return nil, errors.Mark(errors.Wrapf(err, "config file not found at %s", path), errors.ErrNotFound)
				}
			} else {
				return nil, errors.Mark(errors.Wrap(err, "reading config file"), errors.ErrInvalidConfig)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshaling config"), errors.ErrInvalidConfig)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg.path = path
			if err := overlayHooks(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	return &cfg, nil
}

// hookTables holds the parts of the file whose keys are case-sensitive.
type hookTables struct {
	Global  GlobalConfig            `toml:"global"`
	Plugins map[string]PluginConfig `toml:"plugins"`
}

// overlayHooks decodes hook tables straight from the file. Viper lowercases
// every key, which would rename env_vars entries.
func overlayHooks(path string, cfg *Config) error {
	data, err := fileutil.ReadLimited(path, fileutil.MaxConfigSize)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}

	var raw hookTables
	if err := toml.Unmarshal(data, &raw); err != nil {
		return errors.Mark(errors.Wrap(err, "parsing config file"), errors.ErrInvalidConfig)
	}

	if raw.Global.Hooks != nil {
		cfg.Global.Hooks = raw.Global.Hooks
	}
	for name, pc := range raw.Plugins {
		key := strings.ToLower(name)
		existing := cfg.Plugins[key]
		if pc.Hooks != nil {
			existing.Hooks = pc.Hooks
		}
		if cfg.Plugins == nil {
			cfg.Plugins = make(map[string]PluginConfig)
		}
		cfg.Plugins[key] = existing
	}
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		OutputDir: paths.DefaultSnapshotsDir(),
		Logging:   LoggingConfig{TimeFormat: DefaultTimeFormat},
		Hooks:     HooksConfig{ScriptsDir: paths.DefaultScriptsDir()},
		Backup:    BackupConfig{Dir: paths.DefaultBackupDir(), RetentionCount: 10},
	}
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration as TOML to path, or to the file it was
// loaded from when path is empty, or to the default location.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		path = paths.DefaultConfigFile()
	}
	path = paths.ExpandHome(path)

	if err := paths.EnsureDir(filepath.Dir(path), paths.DefaultDirPerm); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := fileutil.AtomicWriteAs(path, fileutil.TOML, c, 0o600); err != nil {
		return errors.Wrap(err, "saving config")
	}
	c.path = path
	return nil
}

// SnapshotsDir returns the expanded snapshot output directory.
func (c *Config) SnapshotsDir() string {
	if c.OutputDir == "" {
		return paths.DefaultSnapshotsDir()
	}
	return paths.ExpandHome(c.OutputDir)
}

// BackupDir returns the expanded pre-restore backup directory.
func (c *Config) BackupDir() string {
	if c.Backup.Dir == "" {
		return paths.DefaultBackupDir()
	}
	return paths.ExpandHome(c.Backup.Dir)
}

// HooksConfig implements hooks.Source.
func (c *Config) HooksConfig() hooks.Config {
	if c.Hooks.ScriptsDir == "" {
		return hooks.DefaultConfig()
	}
	return hooks.Config{ScriptsDir: c.Hooks.ScriptsDir}
}

// GlobalHooks implements hooks.Source. Specs that fail to convert are
// omitted; Validate reports them.
func (c *Config) GlobalHooks(phase hooks.Phase) []hooks.Action {
	return actions(c.Global.Hooks[phase.String()])
}

// PluginHooks returns the hooks configured for a plugin in phase.
func (c *Config) PluginHooks(name string, phase hooks.Phase) []hooks.Action {
	return actions(c.Plugins[name].Hooks[phase.String()])
}

// PluginSettings returns the overrides configured for a plugin.
func (c *Config) PluginSettings(name string) plugin.Settings {
	pc := c.Plugins[name]
	s := plugin.Settings{
		TargetPath:       pc.TargetPath,
		OutputFile:       pc.OutputFile,
		RestoreTargetDir: pc.RestoreTargetDir,
	}
	for _, phase := range PluginPhases() {
		if acts := c.PluginHooks(name, phase); len(acts) > 0 {
			if s.Hooks == nil {
				s.Hooks = make(map[hooks.Phase][]hooks.Action)
			}
			s.Hooks[phase] = acts
		}
	}
	return s
}

func actions(specs []hooks.Spec) []hooks.Action {
	out := make([]hooks.Action, 0, len(specs))
	for _, spec := range specs {
		a, err := spec.Action()
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// GlobalPhases returns the phases valid for global hooks.
func GlobalPhases() []hooks.Phase {
	return []hooks.Phase{hooks.PreSnapshot, hooks.PostSnapshot, hooks.PreRestore, hooks.PostRestore}
}

// PluginPhases returns the phases valid for plugin hooks.
func PluginPhases() []hooks.Phase {
	return []hooks.Phase{hooks.PrePlugin, hooks.PostPlugin, hooks.PreRestore, hooks.PostRestore}
}

// Specs returns the hook specs for scope and phase. An empty scope means
// global hooks; otherwise scope is a plugin name.
func (c *Config) Specs(scope string, phase hooks.Phase) []hooks.Spec {
	if scope == "" {
		return c.Global.Hooks[phase.String()]
	}
	return c.Plugins[scope].Hooks[phase.String()]
}

// AddHook appends spec to the hooks of scope and phase.
func (c *Config) AddHook(scope string, phase hooks.Phase, spec hooks.Spec) error {
	if err := checkScope(scope, phase); err != nil {
		return err
	}
	if _, err := spec.Action(); err != nil {
		return err
	}

	if scope == "" {
		if c.Global.Hooks == nil {
			c.Global.Hooks = make(map[string][]hooks.Spec)
		}
		c.Global.Hooks[phase.String()] = append(c.Global.Hooks[phase.String()], spec)
		return nil
	}

	if c.Plugins == nil {
		c.Plugins = make(map[string]PluginConfig)
	}
	pc := c.Plugins[scope]
	if pc.Hooks == nil {
		pc.Hooks = make(map[string][]hooks.Spec)
	}
	pc.Hooks[phase.String()] = append(pc.Hooks[phase.String()], spec)
	c.Plugins[scope] = pc
	return nil
}

// RemoveHook removes the hook at index from scope and phase and returns it.
func (c *Config) RemoveHook(scope string, phase hooks.Phase, index int) (hooks.Spec, error) {
	specs := c.Specs(scope, phase)
	if index < 0 || index >= len(specs) {
		return hooks.Spec{}, errors.Mark(
			errors.Newf("no %s hook at index %d (have %d)", phase, index, len(specs)),
			errors.ErrNotFound)
	}

	removed := specs[index]
	specs = slices.Delete(slices.Clone(specs), index, index+1)

	if scope == "" {
		c.setGlobal(phase, specs)
	} else {
		pc := c.Plugins[scope]
		if len(specs) == 0 {
			delete(pc.Hooks, phase.String())
		} else {
			pc.Hooks[phase.String()] = specs
		}
		c.Plugins[scope] = pc
	}
	return removed, nil
}

func (c *Config) setGlobal(phase hooks.Phase, specs []hooks.Spec) {
	if len(specs) == 0 {
		delete(c.Global.Hooks, phase.String())
		return
	}
	c.Global.Hooks[phase.String()] = specs
}

func checkScope(scope string, phase hooks.Phase) error {
	allowed := GlobalPhases()
	where := "global"
	if scope != "" {
		allowed = PluginPhases()
		where = "plugin"
	}
	if !slices.Contains(allowed, phase) {
		return errors.Mark(errors.Newf("%s hooks cannot run in phase %s", where, phase), errors.ErrValidation)
	}
	return nil
}

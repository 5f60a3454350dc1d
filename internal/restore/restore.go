// Package restore replays a stored snapshot back onto the machine through
// each plugin's own restore logic.
package restore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// Options controls one restore.
type Options struct {
	// Plugins selects which plugins to restore. Entries are exact names or
	// patterns containing "*". Empty restores every plugin found.
	Plugins []string

	// DryRun performs every step except writing files.
	DryRun bool

	// BackupExisting copies files about to be overwritten into a backup
	// session first.
	BackupExisting bool

	// TargetDir overrides every plugin's restore target.
	TargetDir string
}

// Result is the outcome of restoring one plugin.
type Result struct {
	PluginName    string   `json:"plugin_name" yaml:"plugin_name"`
	Success       bool     `json:"success" yaml:"success"`
	RestoredFiles []string `json:"restored_files" yaml:"restored_files"`
	BackupPath    string   `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Error         string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// candidate is a plugin with stored data in the snapshot.
type candidate struct {
	name   string
	plugin plugin.Plugin
	path   string
}

// Manager lists snapshots and restores them.
type Manager struct {
	registry   *plugin.Registry
	store      *snapshot.Manager
	backups    *backup.Manager
	hookSource hooks.Source
	hookMgr    *hooks.Manager
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager and its hook manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHookSource sets where global hooks and hook settings come from.
func WithHookSource(src hooks.Source) Option {
	return func(m *Manager) {
		m.hookSource = src
	}
}

// WithBackups sets the backup store used when Options.BackupExisting is set.
func WithBackups(b *backup.Manager) Option {
	return func(m *Manager) {
		m.backups = b
	}
}

// NewManager creates a Manager restoring snapshots from store through the
// plugins in registry.
func NewManager(registry *plugin.Registry, store *snapshot.Manager, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.backups == nil {
		m.backups = backup.NewManager(backup.WithLogger(m.logger))
	}
	m.hookMgr = hooks.NewManager(m.logger)
	return m
}

// ListSnapshots returns the stored snapshots, newest first.
func (m *Manager) ListSnapshots(ctx context.Context) ([]snapshot.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := m.store.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing snapshots")
	}
	return infos, nil
}

func (m *Manager) globalHooks(phase hooks.Phase) []hooks.Action {
	if m.hookSource == nil {
		return nil
	}
	return m.hookSource.GlobalHooks(phase)
}

func (m *Manager) hooksConfig() hooks.Config {
	if m.hookSource == nil {
		return hooks.DefaultConfig()
	}
	return m.hookSource.HooksConfig()
}

// RestoreFromSnapshot restores the named snapshot. A missing snapshot is
// the only per-run error besides failing to open a backup session; plugin
// failures are reported in the returned results.
func (m *Manager) RestoreFromSnapshot(ctx context.Context, name string, opts Options) ([]Result, error) {
	dir, err := m.store.Dir(name)
	if err != nil {
		return nil, err
	}
	ctx = logging.NewContext(ctx, m.logger)

	hctx := hooks.NewContext(name, dir, m.hooksConfig())
	m.hookMgr.ExecuteHooks(ctx, m.globalHooks(hooks.PreRestore), hooks.PreRestore, hctx)

	var session *backup.Session
	var backupDir string
	if opts.BackupExisting {
		if opts.DryRun {
			backupDir = m.backups.SessionPath(m.backups.NextSessionID())
			m.logger.Info("would create backup", "path", backupDir)
		} else {
			session, err = m.backups.NewSession()
			if err != nil {
				return nil, err
			}
			defer func() {
				if err := session.Close(); err != nil {
					m.logger.Warn("closing backup session", "error", err)
				}
			}()
			backupDir = session.Path
			m.logger.Info("backing up existing files", "path", backupDir)
		}
	}

	candidates := m.candidates(dir, opts.Plugins)
	if len(candidates) == 0 {
		m.logger.Warn("no plugins to restore", "snapshot", name)
	}

	results := make([]Result, 0, len(candidates))
	totalFiles := 0
	for _, c := range candidates {
		res := m.restorePlugin(ctx, c, hctx, opts, session, backupDir)
		totalFiles += len(res.RestoredFiles)
		results = append(results, res)
	}

	failed := len(Failed(results))
	m.logger.Info("restore completed", "snapshot", name,
		"restored", len(results)-failed, "failed", failed, "files", totalFiles, "dry_run", opts.DryRun)

	post := hctx.WithFileCount(totalFiles).
		WithVariable("restored_count", strconv.Itoa(len(results)-failed)).
		WithVariable("failed_count", strconv.Itoa(failed)).
		WithVariable("total_files", strconv.Itoa(totalFiles))
	m.hookMgr.ExecuteHooks(ctx, m.globalHooks(hooks.PostRestore), hooks.PostRestore, post)

	return results, nil
}

func (m *Manager) restorePlugin(ctx context.Context, c candidate, hctx hooks.Context, opts Options, session *backup.Session, backupDir string) Result {
	logger := m.logger.With("plugin", c.name)
	pctx := hctx.WithPlugin(c.name)
	m.hookMgr.ExecuteHooks(ctx, c.plugin.Hooks(hooks.PreRestore), hooks.PreRestore, pctx)

	target := plugin.RestoreTarget(c.plugin, opts.TargetDir)
	res := Result{PluginName: c.name}

	if opts.BackupExisting {
		path, err := m.backupTargets(ctx, c, target, opts.DryRun, session, backupDir)
		if err != nil {
			logger.Error("backing up existing files failed", "error", err)
			res.Error = err.Error()
			m.postRestore(ctx, c, pctx, res)
			return res
		}
		res.BackupPath = path
	}

	files, err := c.plugin.Restore(ctx, c.path, target, opts.DryRun)
	if err != nil {
		logger.Error("restore failed", "error", err)
		res.Error = err.Error()
	} else {
		res.Success = true
		res.RestoredFiles = files
		if opts.DryRun {
			logger.Info("would restore files", "count", len(files), "target", target)
		} else {
			logger.Info("restored files", "count", len(files), "target", target)
		}
	}

	m.postRestore(ctx, c, pctx, res)
	return res
}

func (m *Manager) postRestore(ctx context.Context, c candidate, pctx hooks.Context, res Result) {
	post := pctx.WithFileCount(len(res.RestoredFiles)).
		WithVariable("success", strconv.FormatBool(res.Success)).
		WithVariable("restored_files", strconv.Itoa(len(res.RestoredFiles))).
		WithVariable("backup_path", res.BackupPath)
	if res.Error != "" {
		post = post.WithVariable("error", res.Error)
	}
	m.hookMgr.ExecuteHooks(ctx, c.plugin.Hooks(hooks.PostRestore), hooks.PostRestore, post)
}

// backupTargets backs up the existing files a plugin is about to
// overwrite. The plugin is asked for a dry-run restore to learn them.
// It returns the backup location, or "" when nothing needed saving.
func (m *Manager) backupTargets(ctx context.Context, c candidate, target string, dryRun bool, session *backup.Session, backupDir string) (string, error) {
	planned, err := c.plugin.Restore(ctx, c.path, target, true)
	if err != nil {
		return "", errors.Wrap(err, "planning backup")
	}

	var existing []string
	for _, p := range planned {
		if _, err := os.Lstat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return "", nil
	}

	labelDir := filepath.Join(backupDir, c.name)
	if dryRun {
		m.logger.Info("would back up existing files", "plugin", c.name, "count", len(existing), "path", labelDir)
		return labelDir, nil
	}

	mf, err := session.Ensure(c.name, existing)
	if err != nil {
		return "", err
	}
	if mf == nil {
		return "", nil
	}
	return labelDir, nil
}

// candidates maps the snapshot's contents to registered plugins. A plugin
// qualifies when its output file, its target directory or a path named
// after it exists in the snapshot. Top-level entries no plugin claims are
// skipped.
func (m *Manager) candidates(dir string, selectors []string) []candidate {
	claimed := make(map[string]bool)
	var out []candidate

	for _, e := range m.registry.Entries() {
		path, ok := storedPath(dir, e.Name, e.Plugin)
		if !ok {
			continue
		}
		rel, _ := filepath.Rel(dir, path)
		top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		claimed[top] = true

		if !selected(e.Name, selectors) {
			m.logger.Debug("plugin not selected", "plugin", e.Name)
			continue
		}
		out = append(out, candidate{name: e.Name, plugin: e.Plugin, path: path})
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			n := entry.Name()
			if strings.HasPrefix(n, ".") || n == snapshot.LegacyMetadataFile || claimed[n] {
				continue
			}
			m.logger.Debug("no plugin for snapshot entry, skipping", "entry", n)
		}
	}

	if len(selectors) > 0 {
		for _, sel := range selectors {
			if !anySelected(out, sel) {
				m.logger.Warn("plugin not found in snapshot", "plugin", sel)
			}
		}
	}

	return out
}

// storedPath returns where a plugin's data lives in the snapshot.
func storedPath(dir, name string, p plugin.Plugin) (string, bool) {
	candidates := []string{filepath.Join(dir, filepath.FromSlash(plugin.OutputPath(p, name)))}
	if tp := p.TargetPath(); tp != "" && p.CreatesOwnOutputFiles() {
		candidates = append(candidates, filepath.Join(dir, filepath.FromSlash(tp)))
	}
	candidates = append(candidates, filepath.Join(dir, name))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}

// selected reports whether name matches one of selectors. A selector with
// "*" matches names containing the rest of the selector; otherwise the
// name must match exactly. Empty selectors select everything.
func selected(name string, selectors []string) bool {
	if len(selectors) == 0 {
		return true
	}
	for _, sel := range selectors {
		if matchSelector(name, sel) {
			return true
		}
	}
	return false
}

func matchSelector(name, sel string) bool {
	sel = strings.TrimSpace(sel)
	if strings.Contains(sel, "*") {
		return strings.Contains(name, strings.ReplaceAll(sel, "*", ""))
	}
	return name == sel
}

func anySelected(cs []candidate, sel string) bool {
	for _, c := range cs {
		if matchSelector(c.name, sel) {
			return true
		}
	}
	return false
}

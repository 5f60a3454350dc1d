// Package executor creates snapshots by running every selected plugin
// concurrently, reusing unchanged output from the previous snapshot.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/dotsnapshot/internal/checksum"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// unknownPlugin names results whose plugin cannot be identified.
const unknownPlugin = "unknown"

// PluginResult is the outcome of one plugin in one run.
type PluginResult struct {
	PluginName string
	Content    string
	Checksum   string
	Success    bool
	Error      string
	// Reused is set when the output was copied from the previous snapshot.
	Reused bool
}

// Run describes a completed snapshot run.
type Run struct {
	Name    string
	Dir     string
	Results []PluginResult
	// Statuses holds each plugin's final progress, including how long it ran.
	Statuses map[string]PluginStatus
}

// Failed returns the results of plugins that did not succeed.
func (r *Run) Failed() []PluginResult {
	var failed []PluginResult
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// Executor runs plugins into new snapshots.
type Executor struct {
	registry       *plugin.Registry
	store          *snapshot.Manager
	hookSource     hooks.Source
	hookMgr        *hooks.Manager
	include        []string
	maxConcurrency int
	progress       ProgressConfig
	logger         *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger for the executor and its hook manager.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHookSource sets where global hooks and hook settings come from.
func WithHookSource(src hooks.Source) Option {
	return func(e *Executor) {
		e.hookSource = src
	}
}

// WithInclude limits the run to plugins matched by selectors.
// See plugin.Matches.
func WithInclude(selectors []string) Option {
	return func(e *Executor) {
		e.include = selectors
	}
}

// WithMaxConcurrency bounds how many plugins run at once. Zero or less
// means unlimited.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) {
		e.maxConcurrency = n
	}
}

// WithProgress sets how long-running plugins are watched and reported.
func WithProgress(cfg ProgressConfig) Option {
	return func(e *Executor) {
		e.progress = cfg
	}
}

// New creates an Executor that runs the plugins in registry and stores
// snapshots in store.
func New(registry *plugin.Registry, store *snapshot.Manager, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		store:    store,
		progress: DefaultProgressConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hookMgr = hooks.NewManager(e.logger)
	return e
}

func (e *Executor) globalHooks(phase hooks.Phase) []hooks.Action {
	if e.hookSource == nil {
		return nil
	}
	return e.hookSource.GlobalHooks(phase)
}

func (e *Executor) hooksConfig() hooks.Config {
	if e.hookSource == nil {
		return hooks.DefaultConfig()
	}
	return e.hookSource.HooksConfig()
}

// Run creates a snapshot. Plugin failures are reported in the returned
// Run; an error is returned only when the snapshot itself could not be
// created or finalized.
func (e *Executor) Run(ctx context.Context) (*Run, error) {
	ctx = logging.NewContext(ctx, e.logger)
	e.logger.Info("starting snapshot execution")

	entries := e.registry.Select(e.include).Entries()

	name, dir, err := e.store.CreateDir()
	if err != nil {
		return nil, err
	}
	e.logger.Info("created snapshot directory", "path", dir)

	hctx := hooks.NewContext(name, dir, e.hooksConfig())
	e.hookMgr.ExecuteHooks(ctx, e.globalHooks(hooks.PreSnapshot), hooks.PreSnapshot, hctx)

	results := make([]PluginResult, len(entries))
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = pluginName(entry)
	}
	prog := NewProgress(e.progress, e.logger, names...)

	watchCtx, stopWatch := context.WithCancel(ctx)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		prog.Watch(watchCtx)
	}()

	var g errgroup.Group
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = e.runPlugin(ctx, entry, dir, hctx, prog)
			return nil
		})
	}
	_ = g.Wait()
	stopWatch()
	<-watched

	md := e.store.NewMetadata()
	for _, res := range results {
		if res.Success {
			md.Checksums[res.PluginName] = res.Checksum
		}
	}
	if err := e.store.SaveMetadata(dir, md); err != nil {
		return nil, err
	}
	if err := e.store.Finalize(dir); err != nil {
		return nil, err
	}

	e.hookMgr.ExecuteHooks(ctx, e.globalHooks(hooks.PostSnapshot), hooks.PostSnapshot, hctx.WithFileCount(len(results)))

	run := &Run{Name: name, Dir: dir, Results: results, Statuses: prog.Statuses()}
	e.logger.Info("snapshot execution completed", "path", dir,
		"plugins", len(results), "failed", len(run.Failed()))
	return run, nil
}

// runPlugin runs one plugin. It never panics: a panic inside the plugin
// becomes a failed result.
func (e *Executor) runPlugin(ctx context.Context, entry plugin.Entry, snapshotDir string, hctx hooks.Context, prog *Progress) (result PluginResult) {
	name := pluginName(entry)

	prog.Start(name)
	// Registered before the recover so it sees the recovered result.
	defer func() {
		if result.Success {
			prog.Complete(name)
		} else {
			prog.Fail(name, result.Error)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("plugin panicked", "plugin", name, "panic", r)
			result = PluginResult{
				PluginName: name,
				Error:      fmt.Sprintf("plugin panicked: %v", r),
			}
		}
	}()

	p := entry.Plugin
	logger := e.logger.With("plugin", name)
	logger.Info("executing plugin")

	pctx := hctx.WithPlugin(name)
	e.hookMgr.ExecuteHooks(ctx, p.Hooks(hooks.PrePlugin), hooks.PrePlugin, pctx)

	if err := p.Validate(ctx); err != nil {
		logger.Warn("plugin validation failed", "error", err)
		return PluginResult{
			PluginName: name,
			Error:      fmt.Sprintf("Validation failed: %v", err),
		}
	}

	content, err := p.Execute(ctx, snapshotDir)
	if err != nil {
		logger.Error("plugin execution failed", "error", err)
		e.hookMgr.ExecuteHooks(ctx, p.Hooks(hooks.PostPlugin), hooks.PostPlugin,
			pctx.WithVariable("error", err.Error()))
		return PluginResult{PluginName: name, Error: err.Error()}
	}

	result = PluginResult{
		PluginName: name,
		Content:    content,
		Checksum:   checksum.Content(content),
		Success:    true,
	}

	relPath := plugin.OutputPath(p, name)

	reused, err := e.reuse(name, relPath, result.Checksum, snapshotDir)
	if err != nil {
		logger.Debug("reuse lookup failed, writing output", "error", err)
	}
	if reused {
		logger.Info("reusing existing file (checksum match)")
		result.Reused = true
		e.hookMgr.ExecuteHooks(ctx, p.Hooks(hooks.PostPlugin), hooks.PostPlugin,
			pctx.WithFileCount(1).WithVariable("reused", "true"))
		return result
	}

	outputPath := filepath.Join(snapshotDir, filepath.FromSlash(relPath))
	if !p.CreatesOwnOutputFiles() {
		if err := writeOutput(outputPath, content); err != nil {
			logger.Error("writing plugin output failed", "error", err)
			return PluginResult{PluginName: name, Error: err.Error()}
		}
	}

	logger.Info("plugin completed successfully")
	e.hookMgr.ExecuteHooks(ctx, p.Hooks(hooks.PostPlugin), hooks.PostPlugin,
		pctx.WithFileCount(1).WithVariable("output_path", outputPath))
	return result
}

func pluginName(entry plugin.Entry) string {
	if entry.Name == "" {
		return unknownPlugin
	}
	return entry.Name
}

// reuse copies relPath forward from the previous snapshot when that
// snapshot recorded the same checksum for the plugin and the copy still
// hashes to sum.
func (e *Executor) reuse(name, relPath, sum, snapshotDir string) (bool, error) {
	existing, err := e.store.FindFileByChecksum(name, relPath, sum, snapshotDir)
	if err != nil || existing == "" {
		return false, err
	}
	copied, err := e.store.CopyFromLatest(relPath, snapshotDir)
	if err != nil || !copied {
		return false, err
	}

	rel := filepath.FromSlash(relPath)
	for _, dest := range []string{
		filepath.Join(snapshotDir, snapshot.MetaDir, rel),
		filepath.Join(snapshotDir, rel),
	} {
		got, err := checksum.File(dest)
		if err != nil {
			continue
		}
		if !checksum.Equal(got, sum) {
			// Drop the bad copy so it cannot end up in the directory checksum.
			_ = os.Remove(dest)
			return false, errors.Newf("copied %s does not match checksum", relPath)
		}
		return true, nil
	}
	return false, errors.Newf("copied %s not found", relPath)
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, "writing plugin output")
	}
	return nil
}

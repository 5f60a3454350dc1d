package executor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/checksum"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/plugin/plugintest"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// tickingClock returns a clock that advances one second per call, so
// consecutive runs get distinct snapshot names.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 17, 14, 30, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newStore(t *testing.T) *snapshot.Manager {
	t.Helper()
	return snapshot.NewManager(t.TempDir(),
		snapshot.WithLogger(logging.ForTest(t)),
		snapshot.WithClock(tickingClock()))
}

func newRegistry(t *testing.T, plugins map[string]plugin.Plugin) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry()
	for name, p := range plugins {
		require.NoError(t, reg.Register(name, p))
	}
	return reg
}

func resultFor(t *testing.T, run *Run, name string) PluginResult {
	t.Helper()
	for _, r := range run.Results {
		if r.PluginName == name {
			return r
		}
	}
	t.Fatalf("no result for plugin %q", name)
	return PluginResult{}
}

// recorder is a hook action that records the contexts it runs with.
type recorder struct {
	mu    sync.Mutex
	calls []hooks.Context
}

func (r *recorder) Kind() hooks.Kind { return hooks.KindLog }
func (r *recorder) String() string { return "recorder" }
func (r *recorder) Validate(hooks.Context) error { return nil }
func (r *recorder) Execute(_ context.Context, hctx hooks.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, hctx)
	return "", nil
}

func (r *recorder) Calls() []hooks.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hooks.Context(nil), r.calls...)
}

type hookSource struct {
	global map[hooks.Phase][]hooks.Action
}

func (s hookSource) GlobalHooks(phase hooks.Phase) []hooks.Action { return s.global[phase] }
func (s hookSource) HooksConfig() hooks.Config { return hooks.Config{ScriptsDir: "/scripts"} }

func TestRun_WritesOutputAndMetadata(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, map[string]plugin.Plugin{
		"homebrew_brewfile": &plugintest.Fake{Content: "brew \"git\"\n"},
		"vscode_settings": &plugintest.Fake{
			Base:    plugin.Base{Settings: plugin.Settings{TargetPath: "vscode", OutputFile: "settings.json"}},
			Content: `{"editor.tabSize": 2}`,
		},
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.Empty(t, run.Failed())

	data, err := os.ReadFile(filepath.Join(run.Dir, "homebrew_brewfile.txt"))
	require.NoError(t, err)
	assert.Equal(t, "brew \"git\"\n", string(data))

	data, err = os.ReadFile(filepath.Join(run.Dir, "vscode", "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"editor.tabSize": 2}`, string(data))

	md, err := store.LoadMetadata(run.Dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"homebrew_brewfile": checksum.Content("brew \"git\"\n"),
		"vscode_settings":   checksum.Content(`{"editor.tabSize": 2}`),
	}, md.Checksums)
	assert.NotEmpty(t, md.DirectoryChecksum)
	assert.NoError(t, store.Verify(run.Dir))
}

func TestRun_ReusesUnchangedOutput(t *testing.T) {
	store := newStore(t)
	fake := &plugintest.Fake{Content: "X"}
	reg := newRegistry(t, map[string]plugin.Plugin{"p": fake})
	exec := New(reg, store, WithLogger(logging.ForTest(t)))

	first, err := exec.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, resultFor(t, first, "p").Reused, "nothing to reuse on the first run")

	second, err := exec.Run(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first.Dir, second.Dir)

	res := resultFor(t, second, "p")
	assert.True(t, res.Success)
	assert.True(t, res.Reused, "identical content takes the reuse path")
	assert.Equal(t, resultFor(t, first, "p").Checksum, res.Checksum)

	a, err := os.ReadFile(filepath.Join(first.Dir, "p.txt"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(second.Dir, "p.txt"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	fake.Content = "Y"
	third, err := exec.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, resultFor(t, third, "p").Reused, "changed content is written")
	c, err := os.ReadFile(filepath.Join(third.Dir, "p.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Y", string(c))
}

func TestRun_TamperedPreviousFileIsRewritten(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, map[string]plugin.Plugin{"p": &plugintest.Fake{Content: "X"}})
	exec := New(reg, store, WithLogger(logging.ForTest(t)))

	first, err := exec.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(first.Dir, "p.txt"), []byte("CORRUPT"), 0o644))

	second, err := exec.Run(context.Background())
	require.NoError(t, err)

	res := resultFor(t, second, "p")
	assert.True(t, res.Success)
	assert.False(t, res.Reused, "a file that no longer matches its checksum is not reused")

	got, err := os.ReadFile(filepath.Join(second.Dir, "p.txt"))
	require.NoError(t, err)
	assert.Equal(t, "X", string(got))
	assert.NoError(t, store.Verify(second.Dir))
}

func TestRun_FailureIsolation(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, map[string]plugin.Plugin{
		"bad_validate": &plugintest.Fake{Content: "v", ValidateErr: errors.New("tool not installed")},
		"bad_execute":  &plugintest.Fake{Content: "e", ExecuteErr: errors.New("command failed")},
		"good":         &plugintest.Fake{Content: "ok"},
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Results, 3)
	assert.Len(t, run.Failed(), 2)

	v := resultFor(t, run, "bad_validate")
	assert.False(t, v.Success)
	assert.Contains(t, v.Error, "Validation failed")
	assert.Contains(t, v.Error, "tool not installed")

	e := resultFor(t, run, "bad_execute")
	assert.False(t, e.Success)
	assert.Contains(t, e.Error, "command failed")

	assert.NoFileExists(t, filepath.Join(run.Dir, "bad_validate.txt"))
	assert.NoFileExists(t, filepath.Join(run.Dir, "bad_execute.txt"))
	assert.FileExists(t, filepath.Join(run.Dir, "good.txt"))

	md, err := store.LoadMetadata(run.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, keys(md.Checksums))
	assert.NoError(t, store.Verify(run.Dir), "snapshot is finalized despite failures")
}

func TestRun_PanicBecomesFailedResult(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, map[string]plugin.Plugin{
		"boom": &plugintest.Fake{PanicWith: "kaboom"},
		"fine": &plugintest.Fake{Content: "fine"},
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.NoError(t, err)

	boom := resultFor(t, run, "boom")
	assert.False(t, boom.Success)
	assert.Contains(t, boom.Error, "kaboom")
	assert.True(t, resultFor(t, run, "fine").Success)
}

func TestRun_OwnOutputFiles(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, map[string]plugin.Plugin{
		"static_files": &plugintest.Fake{
			Content:  "manifest",
			OwnFiles: map[string]string{"static/home/.zshrc": "export A=1"},
		},
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, resultFor(t, run, "static_files").Success)
	assert.NoFileExists(t, filepath.Join(run.Dir, "static_files.txt"))
	assert.FileExists(t, filepath.Join(run.Dir, "static", "home", ".zshrc"))
}

func TestRun_PassesSnapshotDir(t *testing.T) {
	store := newStore(t)
	dirs := make(chan string, 2)
	reg := newRegistry(t, map[string]plugin.Plugin{
		"a": &plugintest.Fake{SnapshotDirs: dirs},
		"b": &plugintest.Fake{SnapshotDirs: dirs},
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.NoError(t, err)
	close(dirs)
	for dir := range dirs {
		assert.Equal(t, run.Dir, dir)
	}
}

func TestRun_Hooks(t *testing.T) {
	store := newStore(t)
	global := &recorder{}
	perPlugin := &recorder{}
	failing := &recorder{}

	reg := newRegistry(t, map[string]plugin.Plugin{
		"ok": &plugintest.Fake{
			Content: "ok",
			Base: plugin.Base{Settings: plugin.Settings{Hooks: map[hooks.Phase][]hooks.Action{
				hooks.PrePlugin:  {perPlugin},
				hooks.PostPlugin: {perPlugin},
			}}},
		},
		"broken": &plugintest.Fake{
			ExecuteErr: errors.New("exploded"),
			Base: plugin.Base{Settings: plugin.Settings{Hooks: map[hooks.Phase][]hooks.Action{
				hooks.PostPlugin: {failing},
			}}},
		},
	})
	src := hookSource{global: map[hooks.Phase][]hooks.Action{
		hooks.PreSnapshot:  {global},
		hooks.PostSnapshot: {global},
	}}

	run, err := New(reg, store, WithLogger(logging.ForTest(t)), WithHookSource(src)).Run(context.Background())
	require.NoError(t, err)

	g := global.Calls()
	require.Len(t, g, 2)
	assert.Equal(t, run.Name, g[0].SnapshotName)
	assert.Empty(t, g[0].PluginName)
	assert.Equal(t, "/scripts", g[0].Config.ScriptsDir)
	assert.Equal(t, 2, g[1].FileCount, "post-snapshot sees the result count")

	p := perPlugin.Calls()
	require.Len(t, p, 2)
	assert.Equal(t, "ok", p[0].PluginName)
	assert.Zero(t, p[0].FileCount)
	assert.Equal(t, 1, p[1].FileCount)
	assert.Equal(t, filepath.Join(run.Dir, "ok.txt"), p[1].Variables["output_path"])

	f := failing.Calls()
	require.Len(t, f, 1)
	assert.Equal(t, "exploded", f[0].Variables["error"])
}

func TestRun_Include(t *testing.T) {
	store := newStore(t)
	skipped := &plugintest.Fake{Content: "npm"}
	reg := newRegistry(t, map[string]plugin.Plugin{
		"vscode_settings":     &plugintest.Fake{Content: "settings"},
		"vscode_extensions":   &plugintest.Fake{Content: "ext"},
		"npm_global_packages": skipped,
	})

	run, err := New(reg, store, WithLogger(logging.ForTest(t)), WithInclude([]string{"vscode"}), WithMaxConcurrency(1)).
		Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, run.Results, 2)
	assert.Zero(t, skipped.Executions())
}

func TestRun_StoreFailureAborts(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0o644))

	store := snapshot.NewManager(root)
	reg := newRegistry(t, map[string]plugin.Plugin{"p": &plugintest.Fake{}})

	run, err := New(reg, store, WithLogger(logging.ForTest(t))).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/restore"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// env is an isolated home directory with a configuration file.
type env struct {
	home   string
	config string
	snaps  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(debugEnv, "")

	e := env{
		home:   home,
		config: filepath.Join(home, "dotsnapshot.toml"),
		snaps:  filepath.Join(home, "snaps"),
	}
	toml := fmt.Sprintf(`output_dir = %q
include_plugins = ["npm_config"]

[hooks]
scripts_dir = %q

[backup]
dir = %q
`, e.snaps, filepath.Join(home, "scripts"), filepath.Join(home, "backups"))
	require.NoError(t, os.WriteFile(e.config, []byte(toml), 0o600))
	return e
}

// resetFlags restores every command flag variable to its default, since
// cobra keeps parsed values between executions.
func resetFlags() {
	verbosity, quiet, logFormat, logFile, configPath = 0, false, "text", "", ""
	snapshotOutput, snapshotPlugins, snapshotConcurrency, snapshotFormat = "", nil, -1, "text"
	listFormat, listOutput = "text", ""
	restoreLatest, restorePlugins, restoreDryRun = false, nil, false
	restoreTargetDir, restoreNoBackup, restoreYes = "", false, false
	restoreOutput, restoreFormat = "", "text"
	cleanNames, cleanDays, cleanKeep = nil, 0, -1
	cleanDryRun, cleanYes, cleanOutput = false, false, ""
	pluginsFormat, pluginsCheck = "text", false
	configShowFormat, configValidateFormat, configInitForce = "toml", "text", false
	doctorFormat, doctorAll, doctorFix, doctorOnly = "text", false, false, nil
	genDocDir, genDocMan = "", false
	versionFormat = "text"
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", e.config}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSnapshotListRestoreClean(t *testing.T) {
	e := newEnv(t)
	npmrc := filepath.Join(e.home, ".npmrc")
	require.NoError(t, os.WriteFile(npmrc, []byte("registry=https://example.test/\n"), 0o600))

	out, err := e.run(t, "snapshot", "--format", "json")
	require.NoError(t, err, out)

	var snap snapshotOutputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Plugins, 1)
	assert.Equal(t, "npm_config", snap.Plugins[0].Name)
	assert.True(t, snap.Plugins[0].Success)
	assert.DirExists(t, snap.Path)

	out, err = e.run(t, "list", "--format", "json")
	require.NoError(t, err, out)
	var infos []snapshot.Info
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, snap.Name, infos[0].Name)
	assert.Equal(t, 1, infos[0].PluginCount)

	require.NoError(t, os.WriteFile(npmrc, []byte("registry=changed\n"), 0o600))

	out, err = e.run(t, "restore", "--latest", "--yes", "--format", "json")
	require.NoError(t, err, out)
	var results []restore.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.NotEmpty(t, results[0].BackupPath)

	data, err := os.ReadFile(npmrc)
	require.NoError(t, err)
	assert.Equal(t, "registry=https://example.test/\n", string(data))

	out, err = e.run(t, "backup", "list", "--format", "json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "npm_config")

	out, err = e.run(t, "clean", "--keep", "0", "--yes")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted 1 snapshots")
	assert.NoDirExists(t, snap.Path)
}

func TestRestore_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	npmrc := filepath.Join(e.home, ".npmrc")
	require.NoError(t, os.WriteFile(npmrc, []byte("original\n"), 0o600))

	out, err := e.run(t, "snapshot")
	require.NoError(t, err, out)
	require.NoError(t, os.WriteFile(npmrc, []byte("changed\n"), 0o600))

	out, err = e.run(t, "restore", "--latest", "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Dry run")

	data, err := os.ReadFile(npmrc)
	require.NoError(t, err)
	assert.Equal(t, "changed\n", string(data))
	assert.NoDirExists(t, filepath.Join(e.home, "backups"))
}

func TestRestore_UnknownSnapshot(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "restore", "20000101_000000", "--yes")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, errors.ExitUser, exitErr.Code)
}

func TestSnapshot_PartialFailure(t *testing.T) {
	e := newEnv(t)
	// No ~/.npmrc exists, so the only selected plugin fails.

	out, err := e.run(t, "snapshot", "--format", "json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPartialFailure))

	var snap snapshotOutputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Plugins, 1)
	assert.False(t, snap.Plugins[0].Success)
	assert.NotEmpty(t, snap.Plugins[0].Error)
}

func TestList_Empty(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots found in "+e.snaps)
}

func TestClean_RequiresSelector(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "clean")
	assert.Error(t, err)
}

func TestPlugins_JSON(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "plugins", "--format", "json")
	require.NoError(t, err, out)

	var infos []pluginInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	byName := make(map[string]pluginInfo, len(infos))
	for _, p := range infos {
		byName[p.Name] = p
	}
	require.Contains(t, byName, "npm_config")
	assert.True(t, byName["npm_config"].Included)
	assert.False(t, byName["homebrew_brewfile"].Included)
	assert.Equal(t, "Homebrew", byName["homebrew_brewfile"].Category)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.run(t, "config", "validate")
		assert.NoError(t, err, out)
	})

	t.Run("reports every hook error", func(t *testing.T) {
		e := newEnv(t)
		extra := `
[[global.hooks.pre-snapshot]]
action = "shout"

[[plugins.npm_config.hooks.post-plugin]]
action = "log"
`
		f, err := os.OpenFile(e.config, os.O_APPEND|os.O_WRONLY, 0o600)
		require.NoError(t, err)
		_, err = f.WriteString(extra)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		out, err := e.run(t, "config", "validate", "--format", "json")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		assert.Contains(t, out, "global.hooks.pre-snapshot[0]")
		assert.Contains(t, out, "plugins.npm_config.hooks.post-plugin[0]")
	})
}

func TestConfigShow_YAML(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "config", "show", "--format", "yaml")
	require.NoError(t, err, out)
	assert.Contains(t, out, e.snaps)
}

func TestDoctor(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.home, ".npmrc"), []byte("registry=x\n"), 0o600))

	out, err := e.run(t, "snapshot")
	require.NoError(t, err, out)
	require.NoError(t, os.Chmod(e.snaps, 0o755))

	out, err = e.run(t, "doctor", "--format", "json")
	require.NoError(t, err, out)

	var report struct {
		Results []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"results"`
		Summary struct {
			Errors   int `json:"errors"`
			Warnings int `json:"warnings"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	statuses := make(map[string]string)
	for _, r := range report.Results {
		statuses[r.Name] = r.Status
	}
	assert.Equal(t, map[string]string{
		"config-file":      "pass",
		"path-permissions": "info",
		"plugins":          "pass",
		"latest-snapshot":  "pass",
	}, statuses)

	out, err = e.run(t, "doctor", "--fix", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "fixed "+e.snaps)
	assert.Contains(t, out, "Summary: 4 passed, 0 info, 0 warnings, 0 errors")

	info, err := os.Stat(e.snaps)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestDoctor_Category(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "doctor", "--category", "config", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "Summary: 1 passed, 0 info, 0 warnings, 0 errors")
}

func TestDoctor_WarningsExitUser(t *testing.T) {
	e := newEnv(t)
	// No ~/.npmrc, so the selected plugin cannot run.

	out, err := e.run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "1 of 1 plugins cannot run here")

	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, errors.ExitUser, exitErr.Code)
}

func TestDoctor_InvalidConfigExitSystem(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("max_concurrency = -1\n"), 0o600))

	out, err := e.run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "configuration error(s)")

	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, errors.ExitSystem, exitErr.Code)
}

func TestGenDoc(t *testing.T) {
	e := newEnv(t)
	dir := filepath.Join(t.TempDir(), "docs")

	out, err := e.run(t, "gen-doc", "--dir", dir)
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "dotsnapshot.md"))
	assert.FileExists(t, filepath.Join(dir, "dotsnapshot_backup_restore.md"))

	data, err := os.ReadFile(filepath.Join(dir, "dotsnapshot_hooks_add.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\ntitle: \"dotsnapshot hooks add\""))

	manDir := filepath.Join(t.TempDir(), "man")
	out, err = e.run(t, "gen-doc", "--dir", manDir, "--man")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(manDir, "dotsnapshot.1"))
	assert.FileExists(t, filepath.Join(manDir, "dotsnapshot-doctor.1"))

	_, err = e.run(t, "gen-doc")
	assert.Error(t, err)
}

func TestConfigEdit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the editor")
	}
	e := newEnv(t)
	editor := filepath.Join(e.home, "fake-editor")

	require.NoError(t, os.WriteFile(editor, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("EDITOR", editor)
	out, err := e.run(t, "config", "edit")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Location: "+e.config)
	assert.Contains(t, out, "is valid")

	require.NoError(t, os.WriteFile(editor, []byte("#!/bin/sh\necho 'max_concurrency = -1' > \"$1\"\n"), 0o755))
	out, err = e.run(t, "config", "edit")
	require.Error(t, err, out)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

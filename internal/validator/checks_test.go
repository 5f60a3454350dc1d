package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
)

var knownPlugins = []string{"homebrew_brewfile", "static_files", "vscode_settings"}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "notify.sh"), []byte("#!/bin/sh\n"), 0o755))

	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "snapshots")
	cfg.Hooks.ScriptsDir = scripts
	return cfg
}

func fields(r *Result) []string {
	out := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, i.Field)
	}
	return out
}

func TestValidateHooks_Valid(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.AddHook("", hooks.PreSnapshot, hooks.Spec{Kind: "script", Command: "notify.sh"}))
	require.NoError(t, cfg.AddHook("vscode_settings", hooks.PostPlugin, hooks.Spec{Kind: "log", Message: "saved"}))

	result := ValidateHooks(cfg, knownPlugins)
	assert.False(t, result.HasErrors(), "%v", result.Issues)
	assert.False(t, result.HasWarnings(), "%v", result.Issues)
}

func TestValidateHooks_Problems(t *testing.T) {
	cfg := testConfig(t)
	cfg.Global.Hooks = map[string][]hooks.Spec{
		"post-snapshot": {
			{Kind: "log", Message: "ok"},
			{Kind: "script", Command: "missing.sh"},
		},
	}
	cfg.Plugins = map[string]config.PluginConfig{
		"ghost": {Hooks: map[string][]hooks.Spec{
			"pre-plugin": {{Kind: "teleport"}},
		}},
	}

	result := ValidateHooks(cfg, knownPlugins)
	require.True(t, result.HasErrors())

	assert.ElementsMatch(t, []string{
		"global.hooks.post-snapshot[1]",
		"plugins.ghost.hooks",
		"plugins.ghost.hooks.pre-plugin[0]",
	}, fields(result))

	for _, issue := range result.Errors() {
		assert.NotEmpty(t, issue.Phase)
	}
	assert.Len(t, result.Warnings(), 1)
}

func TestValidateHooks_KeepsSpecIndexes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Global.Hooks = map[string][]hooks.Spec{
		"pre-snapshot": {
			{Kind: "teleport"},
			{Kind: "log", Message: "ok"},
			{Kind: "script", Command: "missing.sh"},
		},
	}

	result := ValidateHooks(cfg, knownPlugins)
	require.Len(t, result.Errors(), 2)
	assert.Equal(t, []string{"global.hooks.pre-snapshot[0]", "global.hooks.pre-snapshot[2]"}, fields(result))

	script := result.Errors()[1]
	assert.Equal(t, "script", script.Action)
	assert.Equal(t, "pre-snapshot", script.Phase)
	assert.Equal(t, "script: missing.sh", script.Value)
}

func TestValidateHooks_MissingScriptsDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hooks.ScriptsDir = filepath.Join(t.TempDir(), "nope")
	cfg.Global.Hooks = map[string][]hooks.Spec{
		"pre-snapshot": {{Kind: "script", Command: "backup.sh"}},
	}

	result := ValidateHooks(cfg, knownPlugins)
	assert.Contains(t, fields(result), "hooks.scripts_dir")
}

func TestValidateConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrency = -1
	cfg.IncludePlugins = []string{"homebrew", "emacs"}
	cfg.Global.Hooks = map[string][]hooks.Spec{
		"pre-plugin": {{Kind: "log", Message: "wrong phase"}},
		"pre-restore": {{Kind: "log"}},
	}

	result := ValidateConfig(cfg, knownPlugins)
	require.True(t, result.HasErrors())

	got := fields(result)
	assert.Contains(t, got, "global.hooks.pre-plugin")
	assert.Contains(t, got, "global.hooks.pre-restore[0]")
	assert.Contains(t, got, "include_plugins[1]")
	assert.NotContains(t, got, "include_plugins[0]")
	assert.Contains(t, got, "output_dir")

	count := 0
	for _, f := range got {
		if f == "global.hooks.pre-restore[0]" {
			count++
		}
	}
	assert.Equal(t, 1, count, "hook spec errors are reported once")
}

func TestValidateConfig_Nil(t *testing.T) {
	result := ValidateConfig(nil, nil)
	assert.True(t, result.HasErrors())
}

package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
)

func TestAction_Validate(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "present.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	hctx := NewContext("s", dir, Config{ScriptsDir: dir})

	tests := []struct {
		name    string
		action  Action
		wantErr string
	}{
		{"script relative ok", Script{Command: "present.sh"}, ""},
		{"script absolute ok", Script{Command: script}, ""},
		{"script empty", Script{Command: "  "}, "Script command cannot be empty"},
		{"script missing", Script{Command: "missing.sh"}, "Script not found: missing.sh"},
		{"script bad working dir", Script{Command: "present.sh", WorkingDir: filepath.Join(dir, "nope")}, "Working directory does not exist"},
		{"script good working dir", Script{Command: "present.sh", WorkingDir: dir}, ""},
		{"log ok", Log{Message: "hi", Level: "warn"}, ""},
		{"log default level", Log{Message: "hi"}, ""},
		{"log empty", Log{Message: ""}, "Log message cannot be empty"},
		{"log whitespace", Log{Message: "   "}, "Log message cannot be empty"},
		{"log verbose level", Log{Message: "hi", Level: "verbose"}, "Invalid log level: verbose"},
		{"notify ok", Notify{Message: "done"}, ""},
		{"notify empty", Notify{Message: ""}, "Notification message cannot be empty"},
		{"backup ok", Backup{Path: file, Destination: filepath.Join(dir, "copy.txt")}, ""},
		{"backup missing source", Backup{Path: filepath.Join(dir, "nope"), Destination: filepath.Join(dir, "c")}, "Backup source path does not exist"},
		{"backup missing dest parent", Backup{Path: file, Destination: filepath.Join(dir, "a", "b", "c")}, "Backup destination parent directory does not exist"},
		{"cleanup ok", Cleanup{Patterns: []string{"*.tmp"}, Directories: []string{dir}}, ""},
		{"cleanup missing dir", Cleanup{Patterns: []string{"*.tmp"}, Directories: []string{filepath.Join(dir, "gone")}}, "Cleanup directory does not exist"},
		{"cleanup empty pattern", Cleanup{Patterns: []string{""}, Directories: []string{dir}}, "Cleanup pattern cannot be empty"},
		{"cleanup temp only", Cleanup{TempFiles: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate(hctx)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, errors.ErrValidation), "validation errors match ErrValidation")
		})
	}
}

func TestAction_String(t *testing.T) {
	long := strings.Repeat("a", 80)

	tests := []struct {
		action Action
		want   string
	}{
		{Script{Command: "backup.sh"}, "script: backup.sh"},
		{Log{Message: "hello"}, `log: "hello"`},
		{Log{Message: long}, `log: "` + strings.Repeat("a", 50) + `"`},
		{Notify{Message: "done"}, `notify: "done"`},
		{Backup{Path: "~/a", Destination: "/b"}, "backup: ~/a → /b"},
		{Cleanup{Patterns: []string{"*.tmp", "*.log"}, Directories: []string{"/x", "/y"}, TempFiles: true}, "cleanup: patterns: *.tmp, *.log, dirs: 2, temp_files"},
		{Cleanup{TempFiles: true}, "cleanup: temp_files"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.String())
		})
	}
}

func TestLog_Execute(t *testing.T) {
	ctx := logging.NewContext(context.Background(), logging.ForTest(t))
	hctx := NewContext("s1", "/d", Config{})

	out, err := Log{Message: "snapshot {snapshot_name}", Level: "debug"}.Execute(ctx, hctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshot s1", out)
}

func TestNotify_Execute(t *testing.T) {
	ctx := logging.NewContext(context.Background(), logging.ForTest(t))
	hctx := NewContext("s1", "/d", Config{}).WithPlugin("p1")

	out, err := Notify{Message: "saved {plugin_name}", Title: "dotsnapshot"}.Execute(ctx, hctx)
	require.NoError(t, err)
	assert.Equal(t, "Notification: saved p1", out)

	_, err = Notify{Message: "{empty}"}.Execute(ctx, hctx.WithVariable("empty", " "))
	assert.Error(t, err)
}

func TestBackup_Execute(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		src := filepath.Join(dir, "src.txt")
		require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
		dst := filepath.Join(dir, "dst.txt")

		out, err := Backup{Path: src, Destination: dst}.Execute(ctx, Context{})
		require.NoError(t, err)
		assert.Contains(t, out, "Backed up")

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "content", string(got))
	})

	t.Run("directory with interpolated destination", func(t *testing.T) {
		src := filepath.Join(dir, "tree")
		require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "f"), []byte("f"), 0o644))

		hctx := NewContext("s9", dir, Config{})
		_, err := Backup{Path: src, Destination: filepath.Join(dir, "tree-{snapshot_name}")}.Execute(ctx, hctx)
		require.NoError(t, err)

		got, err := os.ReadFile(filepath.Join(dir, "tree-s9", "sub", "f"))
		require.NoError(t, err)
		assert.Equal(t, "f", string(got))
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := Backup{Path: filepath.Join(dir, "nope"), Destination: filepath.Join(dir, "x")}.Execute(ctx, Context{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrExecution))
	})
}

//go:build !windows

package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
)

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestScript_Execute(t *testing.T) {
	dir := t.TempDir()
	ctx := logging.NewContext(context.Background(), logging.ForTest(t))
	hctx := NewContext("s1", "/snap/s1", Config{ScriptsDir: dir}).WithPlugin("p1")

	t.Run("success captures stdout", func(t *testing.T) {
		writeScript(t, dir, "echo.sh", `echo "$1 $2"`)

		out, err := Script{Command: "echo.sh", Args: []string{"{snapshot_name}", "{plugin_name}"}}.Execute(ctx, hctx)
		require.NoError(t, err)
		assert.Equal(t, "s1 p1\n", out)
	})

	t.Run("environment", func(t *testing.T) {
		writeScript(t, dir, "env.sh", `echo "$DOTSNAPSHOT_SNAPSHOT_NAME|$DOTSNAPSHOT_PLUGIN_NAME|$CUSTOM"`)

		out, err := Script{
			Command: "env.sh",
			EnvVars: map[string]string{"CUSTOM": "dir={snapshot_dir}"},
		}.Execute(ctx, hctx)
		require.NoError(t, err)
		assert.Equal(t, "s1|p1|dir=/snap/s1\n", out)
	})

	t.Run("working directory", func(t *testing.T) {
		work := t.TempDir()
		writeScript(t, dir, "pwd.sh", `pwd -P`)

		out, err := Script{Command: "pwd.sh", WorkingDir: work}.Execute(ctx, hctx)
		require.NoError(t, err)
		resolved, err := filepath.EvalSymlinks(work)
		require.NoError(t, err)
		assert.Equal(t, resolved+"\n", out)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		writeScript(t, dir, "fail.sh", `echo partial; echo boom >&2; exit 3`)

		out, err := Script{Command: "fail.sh"}.Execute(ctx, hctx)
		require.Error(t, err)
		assert.Equal(t, "partial\n", out)
		assert.True(t, errors.Is(err, ErrScriptExit))
		assert.True(t, errors.Is(err, errors.ErrExecution))

		var se *ScriptError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 3, se.ExitCode)
		assert.Equal(t, "boom", se.Stderr)
	})

	t.Run("spawn failure", func(t *testing.T) {
		path := filepath.Join(dir, "not-executable.sh")
		require.NoError(t, os.WriteFile(path, []byte("echo hi\n"), 0o644))

		_, err := Script{Command: "not-executable.sh"}.Execute(ctx, hctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrScriptSpawn))
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		marker := filepath.Join(t.TempDir(), "finished")
		writeScript(t, dir, "slow.sh", "sleep 5\ntouch "+marker)

		start := time.Now()
		_, err := Script{Command: "slow.sh", Timeout: 200 * time.Millisecond}.Execute(ctx, hctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrScriptTimeout))
		assert.True(t, errors.Is(err, errors.ErrTimeout))
		assert.Less(t, time.Since(start), 4*time.Second)

		_, statErr := os.Stat(marker)
		assert.True(t, os.IsNotExist(statErr), "killed script must not finish")
	})
}

package doctor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  Severity
		message string
	}{
		{
			name:    "valid",
			content: "output_dir = \"/tmp/snapshots\"\ninclude_plugins = [\"homebrew\"]\n",
			status:  SeverityPass,
			message: "is valid",
		},
		{
			name:    "syntax error",
			content: "output_dir = \n",
			status:  SeverityError,
			message: "TOML syntax error at line 1",
		},
		{
			name:    "unknown key",
			content: "output_dir = \"/tmp/snapshots\"\noutptu_dir = \"typo\"\n",
			status:  SeverityWarning,
			message: "1 unknown key(s)",
		},
		{
			name: "invalid hook phase",
			content: `[[global.hooks.pre-lunch]]
action = "log"
message = "hi"
`,
			status:  SeverityError,
			message: "configuration error(s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewConfigCheck(writeConfig(t, tt.content)).Run(context.Background())
			assert.Equal(t, tt.status, result.Status, result.Message)
			assert.Contains(t, result.Message, tt.message)
			assert.Equal(t, "config-file", result.Name)
			assert.Equal(t, "config", result.Category)
		})
	}
}

func TestConfigCheck_UnknownKeysListed(t *testing.T) {
	path := writeConfig(t, "[logging]\nverbose = true\ncolour = true\n")
	result := NewConfigCheck(path).Run(context.Background())
	require.Equal(t, SeverityWarning, result.Status)
	keys, ok := result.Details["unknown_keys"].([]string)
	require.True(t, ok)
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "colour")
}

func TestConfigCheck_NoFile(t *testing.T) {
	result := NewConfigCheck("").Run(context.Background())
	assert.Equal(t, SeverityInfo, result.Status)
	assert.Contains(t, result.FixHint, "config init")
}

func TestConfigCheck_Unreadable(t *testing.T) {
	result := NewConfigCheck(filepath.Join(t.TempDir(), "missing.toml")).Run(context.Background())
	assert.Equal(t, SeverityError, result.Status)
	assert.Contains(t, result.Message, "cannot read")
}

func TestPermissionCheck_MissingPathsPass(t *testing.T) {
	dir := t.TempDir()
	c := NewPermissionCheck(
		Target{Name: "output_dir", Path: filepath.Join(dir, "snapshots"), Dir: true, Private: true, MustWrite: true},
		Target{Name: "config", Path: filepath.Join(dir, "config.toml")},
		Target{Name: "empty"},
	)
	result := c.Run(context.Background())
	assert.Equal(t, SeverityPass, result.Status)
	assert.Equal(t, "all 2 paths have valid permissions", result.Message)
	assert.False(t, c.CanFix())
}

func TestPermissionCheck_WrongType(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"file expected", Target{Name: "config", Path: dir}, "expected file but found directory"},
		{"dir expected", Target{Name: "output_dir", Path: file, Dir: true}, "expected directory but found file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewPermissionCheck(tt.target).Run(context.Background())
			require.Equal(t, SeverityError, result.Status)
			issues := result.Details["issues"].([]map[string]any)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.want, issues[0]["problem"])
		})
	}
}

func TestPermissionCheck_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	tests := []struct {
		name     string
		dir      bool
		private  bool
		mode     os.FileMode
		status   Severity
		fixable  bool
		wantMode os.FileMode
	}{
		{name: "private dir world readable", dir: true, private: true, mode: 0o755, status: SeverityInfo, fixable: true, wantMode: 0o700},
		{name: "private dir ok", dir: true, private: true, mode: 0o700, status: SeverityPass},
		{name: "public dir ok", dir: true, mode: 0o755, status: SeverityPass},
		{name: "world writable dir", dir: true, mode: 0o777, status: SeverityWarning, fixable: true, wantMode: 0o755},
		{name: "world writable private file", private: true, mode: 0o666, status: SeverityWarning, fixable: true, wantMode: 0o600},
		{name: "private file readable", private: true, mode: 0o644, status: SeverityInfo, fixable: true, wantMode: 0o600},
		{name: "public file ok", mode: 0o644, status: SeverityPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "target")
			if tt.dir {
				require.NoError(t, os.Mkdir(path, 0o700))
			} else {
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
			}
			require.NoError(t, os.Chmod(path, tt.mode))

			c := NewPermissionCheck(Target{Name: "target", Path: path, Dir: tt.dir, Private: tt.private, MustWrite: tt.dir})
			result := c.Run(context.Background())
			assert.Equal(t, tt.status, result.Status, result.Message)
			assert.Equal(t, tt.fixable, result.Fixable)
			assert.Equal(t, tt.fixable, c.CanFix())

			if !tt.fixable {
				return
			}
			fixes := c.Fix()
			require.Len(t, fixes, 1)
			assert.True(t, fixes[0].Fixed, fixes[0].Description)
			assert.NoError(t, fixes[0].Error)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, info.Mode().Perm())

			assert.Equal(t, SeverityPass, c.Run(context.Background()).Status, "clean after fix")
		})
	}
}

func TestPermissionCheck_NotWritable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("requires unix permissions as a non-root user")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	result := NewPermissionCheck(Target{Name: "backup.dir", Path: dir, Dir: true, MustWrite: true}).Run(context.Background())
	assert.Equal(t, SeverityError, result.Status)
	assert.False(t, result.Fixable)
}

func TestFormatTOMLError(t *testing.T) {
	assert.Equal(t, "TOML error: "+assert.AnError.Error(), formatTOMLError(assert.AnError))
}

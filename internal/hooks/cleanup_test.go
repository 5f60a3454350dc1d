package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "anything", true},
		{"*.tmp", "a.tmp", true},
		{"*.tmp", "a.tmp.bak", false},
		{"cache*", "cache-01", true},
		{"cache*", "old-cache", false},
		{"*cache*", "old-cache-01", true},
		{"*cache*", "old-cach", false},
		{"exact.txt", "exact.txt", true},
		{"exact.txt", "exact.txt2", false},
		{"**", "x", true},
		{"a*b", "a*b", true},
		{"a*b", "axb", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.pattern, tt.name))
		})
	}
}

func TestCleanup_Execute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tmp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.tmp"), 0o755))

	out, err := Cleanup{Patterns: []string{"*.tmp"}, Directories: []string{dir}}.Execute(context.Background(), Context{})
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up 1 files", out)

	assert.NoFileExists(t, filepath.Join(dir, "a.tmp"))
	assert.FileExists(t, filepath.Join(dir, "b.log"))
	assert.DirExists(t, filepath.Join(dir, "sub.tmp"))
}

func TestCleanup_MultiplePatternsAndDirs(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	for _, name := range []string{"x.tmp", "y.bak", "keep"} {
		require.NoError(t, os.WriteFile(filepath.Join(a, name), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(b, name), nil, 0o644))
	}

	out, err := Cleanup{Patterns: []string{"*.tmp", "*.bak"}, Directories: []string{a, b}}.Execute(context.Background(), Context{})
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up 4 files", out)
	assert.FileExists(t, filepath.Join(a, "keep"))
	assert.FileExists(t, filepath.Join(b, "keep"))
}

func TestCleanup_MissingDirectoryReportsAndContinues(t *testing.T) {
	good := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(good, "z.tmp"), nil, 0o644))
	missing := filepath.Join(t.TempDir(), "gone")

	out, err := Cleanup{Patterns: []string{"*.tmp"}, Directories: []string{missing, good}}.Execute(context.Background(), Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to clean "+missing+"/*.tmp")
	assert.Equal(t, "Cleaned up 1 files", out)
	assert.NoFileExists(t, filepath.Join(good, "z.tmp"))
}

func TestTempDirs_Deduplicated(t *testing.T) {
	dirs := tempDirs()
	seen := map[string]bool{}
	for _, d := range dirs {
		assert.False(t, seen[d], "duplicate temp dir %s", d)
		seen[d] = true
	}
	assert.Contains(t, dirs, filepath.Clean(os.TempDir()))
}

package backup

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
)

var baseTime = time.Date(2024, 1, 17, 14, 30, 22, 0, time.UTC)

// newTestManager returns a manager whose clock advances by step on each call.
func newTestManager(t *testing.T, step time.Duration) *Manager {
	t.Helper()
	var mu sync.Mutex
	now := baseTime
	return NewManager(
		WithBackupDir(t.TempDir()),
		WithLogger(logging.ForTest(t)),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			cur := now
			now = now.Add(step)
			return cur
		}),
	)
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func TestSession_Collision(t *testing.T) {
	m := newTestManager(t, 0)

	s1, err := m.NewSession()
	require.NoError(t, err)
	s2, err := m.NewSession()
	require.NoError(t, err)

	assert.Equal(t, "20240117T143022", s1.ID)
	assert.Equal(t, "20240117T143022_01", s2.ID)
	assert.DirExists(t, s1.Path)
	assert.DirExists(t, s2.Path)
}

func TestBackupAndRestore_RoundTrip(t *testing.T) {
	m := newTestManager(t, time.Second)
	src := t.TempDir()
	file := filepath.Join(src, "settings.json")
	writeFile(t, file, `{"a":1}`, 0o640)
	writeFile(t, filepath.Join(src, "snippets", "go.json"), "{}", 0o600)

	session, err := m.NewSession()
	require.NoError(t, err)

	mf, err := session.Ensure("vscode_settings", []string{file, filepath.Join(src, "snippets"), filepath.Join(src, "missing")})
	require.NoError(t, err)
	require.NotNil(t, mf)
	assert.Len(t, mf.Files, 2)
	assert.Equal(t, "vscode_settings", mf.Label)
	assert.FileExists(t, filepath.Join(session.Path, "vscode_settings", ManifestFile))

	// Change the originals, then put them back.
	writeFile(t, file, "changed", 0o644)
	require.NoError(t, os.RemoveAll(filepath.Join(src, "snippets")))

	n, err := m.Restore(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.FileExists(t, filepath.Join(src, "snippets", "go.json"))
}

func TestSession_EnsureOncePerLabel(t *testing.T) {
	m := newTestManager(t, time.Second)
	file := filepath.Join(t.TempDir(), "f")
	writeFile(t, file, "v1", 0o600)

	session, err := m.NewSession()
	require.NoError(t, err)

	first, err := session.Ensure("p", []string{file})
	require.NoError(t, err)

	writeFile(t, file, "v2", 0o600)
	second, err := session.Ensure("p", []string{file})
	require.NoError(t, err)
	assert.Same(t, first, second, "second call reuses the first backup")
	assert.Equal(t, 1, session.Manifests())
}

func TestSession_CloseRemovesEmptySession(t *testing.T) {
	m := newTestManager(t, time.Second)
	session, err := m.NewSession()
	require.NoError(t, err)

	mf, err := session.Ensure("p", []string{filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Nil(t, mf)

	require.NoError(t, session.Close())
	assert.NoDirExists(t, session.Path)
}

func TestRestore_DetectsCorruption(t *testing.T) {
	m := newTestManager(t, time.Second)
	file := filepath.Join(t.TempDir(), "f")
	writeFile(t, file, "original", 0o600)

	session, err := m.NewSession()
	require.NoError(t, err)
	mf, err := session.Ensure("p", []string{file})
	require.NoError(t, err)

	stored := filepath.Join(session.Path, "p", filepath.FromSlash(mf.Files[0].RelPath))
	writeFile(t, stored, "tampered", 0o600)
	writeFile(t, file, "current", 0o600)

	_, err = m.Restore(session.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackupCorrupted))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data), "nothing is written when verification fails")
}

func TestRestore_ByLabel(t *testing.T) {
	m := newTestManager(t, time.Second)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, "a", 0o600)
	writeFile(t, b, "b", 0o600)

	session, err := m.NewSession()
	require.NoError(t, err)
	_, err = session.Ensure("a", []string{a})
	require.NoError(t, err)
	_, err = session.Ensure("b", []string{b})
	require.NoError(t, err)

	writeFile(t, a, "a2", 0o600)
	writeFile(t, b, "b2", 0o600)

	n, err := m.Restore(session.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := os.ReadFile(a)
	assert.Equal(t, "a", string(got))
	got, _ = os.ReadFile(b)
	assert.Equal(t, "b2", string(got))

	_, err = m.Restore(session.ID, "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListAndPrune(t *testing.T) {
	m := newTestManager(t, time.Minute)

	_, err := m.List()
	assert.True(t, errors.Is(err, ErrNoBackupsFound))

	file := filepath.Join(t.TempDir(), "f")
	writeFile(t, file, "x", 0o600)

	var ids []string
	for range 3 {
		s, err := m.NewSession()
		require.NoError(t, err)
		_, err = s.Ensure("p", []string{file})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	sessions, err := m.List()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, ids[2], sessions[0].ID, "newest first")
	assert.Equal(t, 1, sessions[0].FileCount())
	assert.Equal(t, []string{"p"}, sessions[0].Labels())

	removed, err := m.Prune(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], removed)

	sessions, err = m.List()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, ids[2], sessions[0].ID)
}

func TestGet_RejectsPathLikeIDs(t *testing.T) {
	m := newTestManager(t, time.Second)
	for _, id := range []string{"", "../x", ".hidden", "missing"} {
		_, err := m.Get(id)
		assert.True(t, errors.Is(err, ErrNoBackupsFound), "id %q", id)
	}
}

func TestGenerateRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/usr/local/bin", "usr/local/bin"},
		{"file:name", "filename"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := generateRelPath(tt.input)
			assert.Equal(t, filepath.FromSlash(tt.expected), got)
			assert.NotContains(t, got, ":")
		})
	}
}

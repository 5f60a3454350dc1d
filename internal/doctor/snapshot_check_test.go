package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

func newStore(t *testing.T) *snapshot.Manager {
	t.Helper()
	return snapshot.NewManager(filepath.Join(t.TempDir(), "snapshots"),
		snapshot.WithLogger(logging.ForTest(t)),
		snapshot.WithClock(func() time.Time { return time.Date(2024, 1, 17, 14, 30, 22, 0, time.UTC) }))
}

// takeSnapshot writes a snapshot holding one plugin file, finalizing it
// when finalize is set.
func takeSnapshot(t *testing.T, store *snapshot.Manager, finalize bool) string {
	t.Helper()
	_, dir, err := store.CreateDir()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npm_config.txt"), []byte("registry=x\n"), 0o644))

	md := store.NewMetadata()
	md.Checksums["npm_config"] = "abc"
	require.NoError(t, store.SaveMetadata(dir, md))
	if finalize {
		require.NoError(t, store.Finalize(dir))
	}
	return dir
}

func TestSnapshotCheck_NoSnapshots(t *testing.T) {
	result := NewSnapshotCheck(newStore(t)).Run(context.Background())
	assert.Equal(t, SeverityInfo, result.Status)
	assert.Contains(t, result.FixHint, "dotsnapshot snapshot")
}

func TestSnapshotCheck_Verified(t *testing.T) {
	store := newStore(t)
	takeSnapshot(t, store, true)

	result := NewSnapshotCheck(store).Run(context.Background())
	assert.Equal(t, SeverityPass, result.Status, result.Message)
	assert.Contains(t, result.Message, "20240117_143022 verified")
	assert.Equal(t, 1, result.Details["plugins"])
	assert.Equal(t, 1, result.Details["snapshots"])
}

func TestSnapshotCheck_Tampered(t *testing.T) {
	store := newStore(t)
	dir := takeSnapshot(t, store, true)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npm_config.txt"), []byte("changed\n"), 0o644))

	result := NewSnapshotCheck(store).Run(context.Background())
	assert.Equal(t, SeverityError, result.Status)
	assert.Contains(t, result.Message, "changed since it was taken")
}

func TestSnapshotCheck_NotFinalized(t *testing.T) {
	store := newStore(t)
	takeSnapshot(t, store, false)

	result := NewSnapshotCheck(store).Run(context.Background())
	assert.Equal(t, SeverityWarning, result.Status)
	assert.Contains(t, result.Message, "never finalized")
}

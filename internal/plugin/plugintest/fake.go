// Package plugintest provides plugin.Plugin implementations for tests.
package plugintest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// Fake is a configurable plugin. Its zero value returns empty content.
type Fake struct {
	plugin.Base

	Content     string
	ExecuteErr  error
	ValidateErr error
	// PanicWith, when non-nil, is passed to panic inside Execute.
	PanicWith any
	// OwnFiles maps snapshot-relative paths to content written by Execute.
	// When set, CreatesOwnOutputFiles returns true.
	OwnFiles map[string]string
	// RestoreErr is returned by Restore.
	RestoreErr error

	executions atomic.Int32
	// SnapshotDirs receives every snapshotDir passed to Execute when non-nil.
	SnapshotDirs chan string
}

// Description implements plugin.Plugin.
func (f *Fake) Description() string { return "fake plugin" }

// Validate implements plugin.Plugin.
func (f *Fake) Validate(context.Context) error { return f.ValidateErr }

// Execute implements plugin.Plugin.
func (f *Fake) Execute(_ context.Context, snapshotDir string) (string, error) {
	f.executions.Add(1)
	if f.SnapshotDirs != nil {
		f.SnapshotDirs <- snapshotDir
	}
	if f.PanicWith != nil {
		panic(f.PanicWith)
	}
	if f.ExecuteErr != nil {
		return "", f.ExecuteErr
	}
	for rel, content := range f.OwnFiles {
		path := filepath.Join(snapshotDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return f.Content, nil
}

// CreatesOwnOutputFiles implements plugin.Plugin.
func (f *Fake) CreatesOwnOutputFiles() bool { return len(f.OwnFiles) > 0 }

// Restore implements plugin.Plugin by copying snapshotPath into targetPath.
func (f *Fake) Restore(_ context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error) {
	if f.RestoreErr != nil {
		return nil, f.RestoreErr
	}
	dst := filepath.Join(targetPath, filepath.Base(snapshotPath))
	if dryRun {
		return []string{dst}, nil
	}
	if err := fileutil.Copy(snapshotPath, dst); err != nil {
		return nil, err
	}
	return []string{dst}, nil
}

// Executions returns how many times Execute was called.
func (f *Fake) Executions() int {
	return int(f.executions.Load())
}

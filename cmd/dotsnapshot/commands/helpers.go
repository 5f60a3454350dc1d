package commands

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/plugin/builtin"
	"github.com/thoreinstein/dotsnapshot/internal/restore"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// newRegistry returns the built-in plugins configured from cfg.
func newRegistry(cfg *config.Config) (*plugin.Registry, error) {
	reg := plugin.NewRegistry()
	if err := builtin.Register(reg, cfg); err != nil {
		return nil, errors.NewSystemError(err, "")
	}
	return reg, nil
}

// newRestorer returns the restore manager for store, wired to the
// configured plugins, hooks and backup directory.
func newRestorer(ctx context.Context, cfg *config.Config, store *snapshot.Manager) (*restore.Manager, error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return restore.NewManager(reg, store,
		restore.WithLogger(logger(ctx)),
		restore.WithHookSource(cfg),
		restore.WithBackups(newBackups(ctx, cfg)),
	), nil
}

// newStore returns the snapshot store rooted at outputDir, falling back
// to the configured output directory.
func newStore(ctx context.Context, cfg *config.Config, outputDir string) *snapshot.Manager {
	root := cfg.SnapshotsDir()
	if outputDir != "" {
		root = paths.ExpandHome(outputDir)
	}
	return snapshot.NewManager(root, snapshot.WithLogger(logger(ctx)))
}

func newBackups(ctx context.Context, cfg *config.Config) *backup.Manager {
	return backup.NewManager(
		backup.WithBackupDir(cfg.BackupDir()),
		backup.WithRetentionCount(cfg.Backup.RetentionCount),
		backup.WithLogger(logger(ctx)),
	)
}

func logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

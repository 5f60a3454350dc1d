// Package commands implements the CLI commands for dotsnapshot.
package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/dotsnapshot/cmd"
	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/backup"
	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/flags"
	"github.com/thoreinstein/dotsnapshot/cmd/dotsnapshot/commands/hooks"
	backupstore "github.com/thoreinstein/dotsnapshot/internal/backup"
	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// debugEnv raises verbosity when no -v flag is given: "1" or "true" for
// debug, "2" for trace.
const debugEnv = "DOTSNAPSHOT_DEBUG"

// Persistent flags.
var (
	verbosity  int
	quiet      bool
	logFormat  string
	logFile    string
	configPath string
)

// configLoadErr is reported by checkConfig for commands that need a
// valid configuration.
var configLoadErr error

// skipConfigCheck marks commands that run even when the configuration
// file does not load.
const skipConfigCheck = "skip-config-check"

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file (default: search ./dotsnapshot.toml, XDG config, ~/.dotsnapshot.toml)")

	rootCmd.AddCommand(hooks.Cmd)
	rootCmd.AddCommand(backup.Cmd)

	version := cmd.Info().Version
	rootCmd.Version = version
	snapshot.Version = version
	backupstore.Version = version
	rootCmd.SetVersionTemplate("dotsnapshot {{.Version}}\n")

	// main prints errors with their suggestions.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	flags.SetConfigFlag(configPath)
	config.Init()

	cfg, err := config.Load(configPath)
	configLoadErr = err
	if err != nil {
		cfg = config.Default()
	}
	flags.SetConfig(cfg)
}

var rootCmd = &cobra.Command{
	Use:   "dotsnapshot",
	Short: "Snapshot and restore your development environment configuration",
	Long: `dotsnapshot captures point-in-time snapshots of configuration domains
(package lists, editor settings, dotfiles) through plugins, reuses unchanged
output from the previous snapshot, and restores snapshots back onto a machine.

Hooks run scripts, log and notify messages, backups and cleanups at fixed
points of the snapshot and restore lifecycle.`,
	Example: `  # Create a snapshot with every plugin
  dotsnapshot snapshot

  # List snapshots
  dotsnapshot list

  # Restore the VSCode settings from the latest snapshot
  dotsnapshot restore --latest --plugins vscode_settings

  See Also: dotsnapshot config, dotsnapshot hooks`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// logLevel resolves the log level. -q and -v win, then DOTSNAPSHOT_DEBUG,
// then logging.verbose from the configuration.
func logLevel(cfg *config.Config) (slog.Level, error) {
	switch {
	case quiet && verbosity > 0:
		return 0, errors.NewUserError(errors.New("--quiet and --verbose cannot be combined"), "")
	case quiet:
		return slog.LevelError, nil
	case verbosity > 0:
		return logging.LevelFromVerbosity(verbosity), nil
	}

	switch os.Getenv(debugEnv) {
	case "1", "true":
		return slog.LevelDebug, nil
	case "2":
		return logging.LevelTrace, nil
	}
	if cfg.Logging.Verbose {
		return slog.LevelDebug, nil
	}
	return logging.LevelFromVerbosity(0), nil
}

// setupLogging installs the logger on the default slog handler and on the
// command context.
func setupLogging(cmd *cobra.Command) error {
	cfg := flags.Config()
	level, err := logLevel(cfg)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return errors.NewUserError(err, "")
	}

	logCfg := logging.Config{
		Level:      level,
		Format:     format,
		Output:     cmd.ErrOrStderr(),
		TimeFormat: cfg.Logging.TimeFormat,
	}

	if logFile != "" {
		f, err := os.OpenFile(paths.ExpandHome(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(errors.Wrap(err, "opening log file"), "")
		}
		logCfg.Mirror = f
	}

	logger := logging.New(logCfg)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig reports a configuration load failure unless cmd or one of
// its parents tolerates it.
func checkConfig(cmd *cobra.Command) error {
	if configLoadErr == nil {
		return nil
	}
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigCheck] == "true" {
			return nil
		}
	}
	return errors.NewConfigError(configLoadErr)
}

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

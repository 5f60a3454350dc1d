// Package config provides configuration management for the dotsnapshot CLI.
//
// # Configuration File
//
// The configuration file is TOML. Load searches, in order: the path given
// with --config, $DOTSNAPSHOT_CONFIG, ./dotsnapshot.toml,
// ./.dotsnapshot.toml, ~/.config/dotsnapshot/config.toml and
// ~/.dotsnapshot.toml. When none exists the defaults are used.
//
//	output_dir = "~/dotsnapshots"
//	include_plugins = ["homebrew", "vscode_settings"]
//	max_concurrency = 4
//
//	[hooks]
//	scripts_dir = "~/.config/dotsnapshot/scripts"
//
//	[[global.hooks.pre-snapshot]]
//	action = "log"
//	message = "starting {snapshot_name}"
//
//	[plugins.vscode_settings]
//	restore_target_dir = "~/Library/Application Support/Code/User"
//
//	[[plugins.vscode_settings.hooks.post-plugin]]
//	action = "notify"
//	message = "saved {plugin_name}"
//
//	[static_files]
//	files = ["~/.gitconfig", "~/.zshrc"]
//	ignore = ["*.log"]
//
// Settings can be overridden with DOTSNAPSHOT_ environment variables,
// e.g. DOTSNAPSHOT_OUTPUT_DIR.
//
// # Hooks
//
// Global hooks may run in pre-snapshot, post-snapshot, pre-restore and
// post-restore. Plugin hooks may run in pre-plugin, post-plugin,
// pre-restore and post-restore. [Config] implements hooks.Source, and
// [Config.PluginSettings] turns a plugin's table into plugin.Settings.
//
// # Validation
//
// All loaded configurations are validated automatically. [Validate] returns
// every problem found, as [PathError] and [HookError] values where a field
// is to blame.
package config

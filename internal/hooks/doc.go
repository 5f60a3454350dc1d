// Package hooks implements the user-declared side effects dotsnapshot runs
// at fixed lifecycle checkpoints.
//
// # Actions
//
// An [Action] is one of five immutable values:
//
//   - [Script] runs an executable with interpolated args and environment
//   - [Log] writes an interpolated message at a chosen level
//   - [Notify] announces an interpolated message (currently via the logger)
//   - [Backup] copies a file or directory tree
//   - [Cleanup] deletes files matching simple wildcard patterns
//
// Every action is validated with Validate before Execute is attempted; the
// two are always separate, explicit steps.
//
// # Context
//
// A [Context] carries the template variables and path-resolution settings
// for one hook batch. The With* methods return a modified copy, so a context
// can be shared between concurrently running plugins without races.
//
// Placeholders of the form {name} are replaced from the context:
//
//	{snapshot_name} {snapshot_dir} {file_count} {plugin_name}
//
// plus any variable added with [Context.WithVariable]. {plugin_name} is only
// replaced when a plugin is attached. Unknown placeholders are left as-is.
//
// # Manager
//
// A [Manager] runs one ordered batch of actions for one [Phase]. Every action
// is attempted even when an earlier one fails; failures are captured in the
// returned [Result] values and never raised.
//
// # Configuration
//
// Actions are stored in TOML as flat [Spec] tables tagged by an "action" key:
//
//	[[global.hooks.pre-snapshot]]
//	action = "script"
//	command = "prepare.sh"
//	args = ["{snapshot_name}"]
//	timeout = 60
package hooks

// Package paths provides path resolution for dotsnapshot's own files.
//
// The package wraps github.com/adrg/xdg for XDG Base Directory compliance.
// On Linux and macOS, paths follow XDG conventions (~/.config,
// ~/.local/share, ~/.cache).
//
// # Standard Locations
//
//	paths.AppConfigDir()        // <ConfigHome>/dotsnapshot/
//	paths.DefaultConfigFile()   // <ConfigHome>/dotsnapshot/config.toml
//	paths.DefaultScriptsDir()   // <ConfigHome>/dotsnapshot/scripts/
//	paths.DefaultSnapshotsDir() // <DataHome>/dotsnapshot/snapshots/
//	paths.DefaultBackupDir()    // <DataHome>/dotsnapshot/backups/
//
// # Home Expansion
//
// Every user-supplied path accepted by dotsnapshot goes through [ExpandHome],
// which replaces a leading "~" with the current user's home directory:
//
//	paths.ExpandHome("~/.gitconfig") // /home/me/.gitconfig
//
// Static file entries also go through [Expand], which additionally
// substitutes $VAR and ${VAR}.
package paths

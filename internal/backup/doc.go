// Package backup keeps copies of files that a restore is about to
// overwrite, so the restore can be undone.
//
// Backups are grouped into sessions, one per restore run. Inside a session
// each label (normally a plugin name) gets its own directory holding the
// copied files and a manifest:
//
//	~/.local/share/dotsnapshot/backups/
//	└── {session}/                 20240117T143022
//	    └── {label}/               vscode_settings
//	        ├── manifest.json
//	        └── {copied files...}  home/user/.config/Code/User/settings.json
//
// # Creating Backups
//
// A restore opens a [Session] and calls [Session.Ensure] for every plugin
// before the plugin writes anything:
//
//	session, err := mgr.NewSession()
//	manifest, err := session.Ensure("vscode_settings", targets)
//	defer session.Close()
//
// Each copied file keeps its permissions and is recorded with a SHA256 hash.
// Missing source paths are skipped, and a session that ends up empty is
// removed by [Session.Close].
//
// # Restoring Backups
//
// [Manager.Restore] copies a session's files back to their original
// locations. Every file is verified against its recorded hash first; a
// mismatch returns [ErrBackupCorrupted] before anything is written.
//
// # Retention
//
// [Manager.Prune] removes all but the newest sessions. [Manager.List]
// returns sessions newest first.
package backup

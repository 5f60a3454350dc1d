package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName names dotsnapshot's directories under the XDG base directories.
const AppName = "dotsnapshot"

// DefaultDirPerm is used by EnsureDir when no permission is given.
const DefaultDirPerm = 0o700

// ErrHomeDirNotFound is returned when $HOME and the platform fallbacks
// are all unavailable.
var ErrHomeDirNotFound = errors.New("home directory not found")

// EnsureDir creates path and its parents. A zero perm means DefaultDirPerm.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the home directory, or "" when it cannot be determined.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the home directory or ErrHomeDirNotFound.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "resolving home directory"), ErrHomeDirNotFound)
	}
	return home, nil
}

// ExpandHome replaces a leading "~" or "~/" with the home directory.
// "~user" forms and paths without a tilde are returned unchanged, and so
// is everything when the home directory is unknown.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != '\\') {
		return path
	}
	home, err := ResolveHome()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Expand applies ExpandHome, then replaces $VAR and ${VAR} references
// with their environment values. Unset variables are left as written so
// a typo stays visible in error messages.
func Expand(path string) string {
	path = ExpandHome(path)
	if !strings.Contains(path, "$") {
		return path
	}
	return os.Expand(path, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

// ConfigHome is $XDG_CONFIG_HOME or the platform equivalent.
func ConfigHome() string { return xdg.ConfigHome }

// DataHome is $XDG_DATA_HOME or the platform equivalent.
func DataHome() string { return xdg.DataHome }

// AppConfigDir returns <ConfigHome>/dotsnapshot.
func AppConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// DefaultConfigFile returns <ConfigHome>/dotsnapshot/config.toml.
func DefaultConfigFile() string {
	return filepath.Join(AppConfigDir(), "config.toml")
}

// DefaultScriptsDir is where relative hook scripts resolve when
// hooks.scripts_dir is unset.
func DefaultScriptsDir() string {
	return filepath.Join(AppConfigDir(), "scripts")
}

// DefaultSnapshotsDir returns <DataHome>/dotsnapshot/snapshots.
func DefaultSnapshotsDir() string {
	return filepath.Join(DataHome(), AppName, "snapshots")
}

// DefaultBackupDir returns <DataHome>/dotsnapshot/backups, which holds
// the pre-restore backup sessions.
func DefaultBackupDir() string {
	return filepath.Join(DataHome(), AppName, "backups")
}

package backup

import (
	"io/fs"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// Default configuration values.
const (
	// DefaultRetentionCount is the default number of backup sessions to retain.
	DefaultRetentionCount = 10

	// ManifestFile is the manifest filename inside each label directory.
	ManifestFile = "manifest.json"

	// idLayout is the time layout of session IDs.
	idLayout = "20060102T150405"
)

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no backup sessions exist, or the requested
	// one does not.
	ErrNoBackupsFound = errors.Mark(errors.New("no backups found"), errors.ErrNotFound)

	// ErrBackupCorrupted indicates backup file integrity verification failed.
	// This occurs when a file's SHA256 hash doesn't match the manifest.
	ErrBackupCorrupted = errors.Mark(errors.New("backup corrupted"), errors.ErrValidation)

	// ErrNothingToBackUp indicates none of the given paths exist.
	ErrNothingToBackUp = errors.New("no files to back up")
)

// Manifest describes the files backed up for one label within a session.
// It is stored as manifest.json in the label directory.
type Manifest struct {
	// Version is the manifest format version for forward compatibility.
	Version int `json:"version"`

	// CreatedAt is when the backup was created.
	CreatedAt time.Time `json:"created_at"`

	// Label names what was backed up, usually a plugin name.
	Label string `json:"label"`

	// Files contains metadata for each backed up file.
	Files []File `json:"files"`

	// DotsnapshotVersion is the version of dotsnapshot that created this backup.
	DotsnapshotVersion string `json:"dotsnapshot_version"`

	// SessionID is the ID of the session holding this manifest.
	// It is populated when loading from disk but not stored in JSON.
	SessionID string `json:"-" yaml:"-"`
}

// File contains metadata for a single backed up file.
type File struct {
	// OriginalPath is the absolute path where the file was located.
	OriginalPath string `json:"original_path"`

	// RelPath is the relative path within the label directory.
	RelPath string `json:"rel_path"`

	// SHA256Hash is the hex-encoded SHA256 hash of the file contents.
	SHA256Hash string `json:"sha256_hash"`

	// Mode is the file's permission bits.
	Mode fs.FileMode `json:"mode"`
}

// SessionInfo summarizes one backup session.
type SessionInfo struct {
	ID        string     `json:"id" yaml:"id"`
	Path      string     `json:"path" yaml:"path"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	Manifests []Manifest `json:"manifests" yaml:"manifests"`
}

// FileCount returns the number of files across every manifest.
func (s SessionInfo) FileCount() int {
	n := 0
	for _, m := range s.Manifests {
		n += len(m.Files)
	}
	return n
}

// Labels returns the labels backed up in the session, in manifest order.
func (s SessionInfo) Labels() []string {
	labels := make([]string, 0, len(s.Manifests))
	for _, m := range s.Manifests {
		labels = append(labels, m.Label)
	}
	return labels
}

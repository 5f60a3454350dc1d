package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/checksum"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Manager handles backup creation, restoration, and management.
type Manager struct {
	rootDir        string
	retentionCount int
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.rootDir = paths.ExpandHome(dir)
		}
	}
}

// WithRetentionCount sets the number of sessions Prune keeps by default.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// WithClock overrides the clock used to name sessions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for backup operations.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new backup Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:        paths.DefaultBackupDir(),
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the root backup directory.
func (m *Manager) Root() string {
	return m.rootDir
}

// RetentionCount returns the configured number of sessions to keep.
func (m *Manager) RetentionCount() int {
	return m.retentionCount
}

// NextSessionID returns an unused session ID derived from the current time.
// It does not create anything.
func (m *Manager) NextSessionID() string {
	base := m.now().Format(idLayout)
	id := base
	for i := 1; ; i++ {
		if _, err := os.Stat(m.SessionPath(id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%02d", base, i)
	}
}

// SessionPath returns the directory of a session.
func (m *Manager) SessionPath(id string) string {
	return filepath.Join(m.rootDir, id)
}

// Backup copies paths into <session>/<label>/ and writes a manifest there.
// Paths may be files or directories; directories are backed up
// recursively. Missing paths are skipped. ErrNothingToBackUp is returned
// when none of them exist.
func (m *Manager) Backup(sessionID, label string, srcPaths []string) (*Manifest, error) {
	if sessionID == "" {
		return nil, errors.Mark(errors.New("session ID is required"), errors.ErrValidation)
	}
	if label == "" {
		return nil, errors.Mark(errors.New("label is required"), errors.ErrValidation)
	}
	if len(srcPaths) == 0 {
		return nil, errors.Mark(errors.New("at least one path is required"), errors.ErrValidation)
	}

	labelPath := m.labelPath(sessionID, label)
	var files []File

	for _, p := range srcPaths {
		expanded := paths.ExpandHome(p)

		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", p)
		}

		if info.IsDir() {
			dirFiles, err := backupDirectory(expanded, labelPath)
			if err != nil {
				return nil, errors.Wrapf(err, "backing up directory %s", p)
			}
			files = append(files, dirFiles...)
		} else {
			bf, err := backupFile(expanded, labelPath)
			if err != nil {
				return nil, errors.Wrapf(err, "backing up file %s", p)
			}
			files = append(files, *bf)
		}
	}

	if len(files) == 0 {
		return nil, ErrNothingToBackUp
	}

	manifest := &Manifest{
		Version:            ManifestVersion,
		CreatedAt:          m.now().UTC(),
		Label:              label,
		Files:              files,
		DotsnapshotVersion: Version,
		SessionID:          sessionID,
	}

	if err := fileutil.AtomicWriteJSON(filepath.Join(labelPath, ManifestFile), manifest); err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}

	m.logger.Debug("backed up files", "session", sessionID, "label", label, "files", len(files))
	return manifest, nil
}

// backupFile copies a single file into dir.
func backupFile(src, dir string) (*File, error) {
	relPath := generateRelPath(src)
	dst := filepath.Join(dir, relPath)

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating parent directory")
	}

	hash, mode, err := copyFile(src, dst)
	if err != nil {
		return nil, err
	}

	return &File{
		OriginalPath: src,
		RelPath:      filepath.ToSlash(relPath),
		SHA256Hash:   hash,
		Mode:         mode,
	}, nil
}

// backupDirectory recursively backs up all regular files below srcDir.
func backupDirectory(srcDir, dir string) ([]File, error) {
	var files []File

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		bf, err := backupFile(path, dir)
		if err != nil {
			return err
		}
		files = append(files, *bf)
		return nil
	})

	return files, err
}

// Restore copies the files of a session back to their original locations.
// With labels, only those manifests are restored. Every file is verified
// against its recorded hash before anything is written.
func (m *Manager) Restore(sessionID string, labels ...string) (int, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return 0, err
	}

	var selected []Manifest
	for _, mf := range session.Manifests {
		if len(labels) == 0 || slices.Contains(labels, mf.Label) {
			selected = append(selected, mf)
		}
	}
	if len(selected) == 0 {
		return 0, errors.Wrapf(ErrNoBackupsFound, "no backups for %s in session %s", strings.Join(labels, ", "), sessionID)
	}

	for _, mf := range selected {
		if err := m.verify(sessionID, mf); err != nil {
			return 0, err
		}
	}

	restored := 0
	for _, mf := range selected {
		labelPath := m.labelPath(sessionID, mf.Label)
		for _, bf := range mf.Files {
			src := filepath.Join(labelPath, filepath.FromSlash(bf.RelPath))

			if err := os.MkdirAll(filepath.Dir(bf.OriginalPath), 0o755); err != nil {
				return restored, errors.Wrapf(err, "creating directory for %s", bf.OriginalPath)
			}
			if _, _, err := copyFile(src, bf.OriginalPath); err != nil {
				return restored, errors.Wrapf(err, "restoring %s", bf.OriginalPath)
			}
			if err := os.Chmod(bf.OriginalPath, bf.Mode); err != nil {
				return restored, errors.Wrapf(err, "setting permissions for %s", bf.OriginalPath)
			}
			restored++
		}
	}

	m.logger.Info("restored backup", "session", sessionID, "files", restored)
	return restored, nil
}

// verify checks every file of a manifest against its recorded hash.
func (m *Manager) verify(sessionID string, mf Manifest) error {
	labelPath := m.labelPath(sessionID, mf.Label)
	for _, bf := range mf.Files {
		hash, err := checksum.File(filepath.Join(labelPath, filepath.FromSlash(bf.RelPath)))
		if err != nil {
			return errors.Wrapf(err, "reading backup file %s", bf.RelPath)
		}
		if !checksum.Equal(hash, bf.SHA256Hash) {
			return errors.Wrapf(ErrBackupCorrupted, "file %s hash mismatch", bf.RelPath)
		}
	}
	return nil
}

// List returns all backup sessions, newest first. Directories without any
// readable manifest are skipped.
func (m *Manager) List() ([]SessionInfo, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	sessions := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		session, err := m.Get(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, *session)
	}

	if len(sessions) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(sessions, func(a, b SessionInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	return sessions, nil
}

// Get loads every manifest of a session.
func (m *Manager) Get(sessionID string) (*SessionInfo, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.HasPrefix(sessionID, ".") {
		return nil, errors.Wrapf(ErrNoBackupsFound, "backup %q not found", sessionID)
	}

	sessionPath := m.SessionPath(sessionID)
	entries, err := os.ReadDir(sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", sessionID)
		}
		return nil, errors.Wrap(err, "reading backup session")
	}

	session := &SessionInfo{ID: sessionID, Path: sessionPath}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		mf, err := readManifest(filepath.Join(sessionPath, entry.Name(), ManifestFile))
		if err != nil {
			continue
		}
		mf.SessionID = sessionID
		session.Manifests = append(session.Manifests, *mf)
		if session.CreatedAt.IsZero() || mf.CreatedAt.Before(session.CreatedAt) {
			session.CreatedAt = mf.CreatedAt
		}
	}

	if len(session.Manifests) == 0 {
		return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s has no manifests", sessionID)
	}
	return session, nil
}

// Prune removes the oldest sessions, keeping the most recent keep. A keep
// of zero or less uses the configured retention count. It returns the IDs
// of removed sessions.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		keep = m.retentionCount
	}

	sessions, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil, nil
		}
		return nil, err
	}

	var removed []string
	for i := keep; i < len(sessions); i++ {
		if err := os.RemoveAll(sessions[i].Path); err != nil {
			return removed, errors.Wrapf(err, "removing backup %s", sessions[i].ID)
		}
		removed = append(removed, sessions[i].ID)
	}

	return removed, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	var mf Manifest
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return &mf, nil
}

// labelPath returns the directory holding one label's files in a session.
func (m *Manager) labelPath(sessionID, label string) string {
	return filepath.Join(m.SessionPath(sessionID), label)
}

// copyFile copies a file from src to dst, returning the SHA256 hash and mode.
// The destination file is created with 0600 permissions initially,
// then updated to match the source file's permissions.
func copyFile(src, dst string) (hash string, mode fs.FileMode, err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return "", 0, errors.Wrap(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "stat source file")
	}
	mode = srcInfo.Mode().Perm()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, errors.Wrap(err, "creating destination file")
	}

	// Compute hash while copying
	h := sha256.New()
	w := io.MultiWriter(dstFile, h)

	if _, err := io.Copy(w, srcFile); err != nil {
		dstFile.Close()
		return "", 0, errors.Wrap(err, "copying file")
	}

	if err := dstFile.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing destination file")
	}

	if err := os.Chmod(dst, mode); err != nil {
		return "", 0, errors.Wrap(err, "setting permissions")
	}

	return hex.EncodeToString(h.Sum(nil)), mode, nil
}

// generateRelPath creates a relative path for storage in the backup directory.
// The absolute source path is kept with its root and any drive colon
// removed, so every source maps to a unique, readable location.
func generateRelPath(absPath string) string {
	clean := filepath.Clean(absPath)
	clean = strings.TrimLeft(clean, string(filepath.Separator))
	return strings.ReplaceAll(clean, ":", "")
}

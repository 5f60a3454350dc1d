package snapshot

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/checksum"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// Snapshot store constants.
const (
	// NameLayout is the time layout of snapshot directory names.
	NameLayout = "20060102_150405"

	// MetaDir is the per-snapshot metadata directory.
	MetaDir = ".snapshot"

	// MetadataFile is the metadata filename inside MetaDir.
	MetadataFile = "checksum.json"

	// LegacyMetadataFile is the metadata filename older snapshots kept at
	// the snapshot root.
	LegacyMetadataFile = "metadata.json"

	// maxCollisions bounds the _NN suffixes tried for one second.
	maxCollisions = 99
)

var namePattern = regexp.MustCompile(`^\d{8}_\d{6}(_\d{2})?$`)

// Version is recorded in new metadata. It is set at build time via ldflags.
var Version = "dev"

// ErrMetadataNotFound is returned when a snapshot has no metadata file.
var ErrMetadataNotFound = errors.Mark(errors.New("metadata file not found"), errors.ErrNotFound)

// ErrChecksumMismatch is returned by Verify when a snapshot's contents no
// longer match its recorded directory checksum.
var ErrChecksumMismatch = errors.Mark(errors.New("directory checksum mismatch"), errors.ErrValidation)

// Metadata describes one snapshot.
type Metadata struct {
	Timestamp         time.Time         `json:"timestamp"`
	Version           string            `json:"version"`
	Checksums         map[string]string `json:"checksums"`
	DirectoryChecksum string            `json:"directory_checksum"`
}

// Info summarizes a stored snapshot.
type Info struct {
	Name        string    `json:"name" yaml:"name"`
	Path        string    `json:"path" yaml:"path"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	SizeBytes   int64     `json:"size_bytes" yaml:"size_bytes"`
	PluginCount int       `json:"plugin_count" yaml:"plugin_count"`
}

// Manager creates, reads and removes snapshots below a root directory.
type Manager struct {
	root    string
	logger  *slog.Logger
	now     func() time.Time
	version string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for store operations.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the clock used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager rooted at root.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:    root,
		logger:  slog.Default(),
		now:     time.Now,
		version: Version,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the store's root directory.
func (m *Manager) Root() string {
	return m.root
}

// NewMetadata returns empty metadata stamped with the current time.
func (m *Manager) NewMetadata() *Metadata {
	return &Metadata{
		Timestamp: m.now().UTC(),
		Version:   m.version,
		Checksums: make(map[string]string),
	}
}

// CreateDir creates a new, uniquely named snapshot directory and returns
// its name and path.
func (m *Manager) CreateDir() (name, dir string, err error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return "", "", errors.Wrap(err, "creating snapshots directory")
	}

	base := m.now().UTC().Format(NameLayout)
	for i := 0; i <= maxCollisions; i++ {
		name = base
		if i > 0 {
			name = fmt.Sprintf("%s_%02d", base, i)
		}
		dir = filepath.Join(m.root, name)

		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return name, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", errors.Wrap(err, "creating snapshot directory")
		}
	}

	return "", "", errors.Newf("too many snapshots created at %s", base)
}

// SaveMetadata writes md to <dir>/.snapshot/checksum.json.
func (m *Manager) SaveMetadata(dir string, md *Metadata) error {
	metaDir := filepath.Join(dir, MetaDir)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return errors.Wrap(err, "creating metadata directory")
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(metaDir, MetadataFile), md); err != nil {
		return errors.Wrap(err, "saving snapshot metadata")
	}
	return nil
}

// LoadMetadata reads a snapshot's metadata, falling back to the legacy
// root-level metadata.json.
func (m *Manager) LoadMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, MetaDir, MetadataFile)
	if _, err := os.Stat(path); err != nil {
		legacy := filepath.Join(dir, LegacyMetadataFile)
		if _, lerr := os.Stat(legacy); lerr != nil {
			return nil, errors.Wrapf(ErrMetadataNotFound, "%s", dir)
		}
		path = legacy
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot metadata")
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if md.Checksums == nil {
		md.Checksums = make(map[string]string)
	}
	return &md, nil
}

// FindLatestExcluding returns the path of the newest snapshot other than
// exclude, or "" when there is none.
func (m *Manager) FindLatestExcluding(exclude string) (string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading snapshots directory")
	}

	excludeName := ""
	if exclude != "" && filepath.Clean(filepath.Dir(exclude)) == filepath.Clean(m.root) {
		excludeName = filepath.Base(exclude)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && namePattern.MatchString(e.Name()) && e.Name() != excludeName {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	slices.Sort(names)
	return filepath.Join(m.root, names[len(names)-1]), nil
}

// FindFileByChecksum looks in the newest snapshot other than exclude for
// relPath, and returns its path when that snapshot recorded sum for
// pluginName and the file's bytes still hash to sum. It returns "" when
// there is no reusable file.
func (m *Manager) FindFileByChecksum(pluginName, relPath, sum, exclude string) (string, error) {
	latest, err := m.FindLatestExcluding(exclude)
	if err != nil || latest == "" {
		return "", err
	}

	md, err := m.LoadMetadata(latest)
	if err != nil {
		if errors.Is(err, ErrMetadataNotFound) {
			return "", nil
		}
		return "", err
	}

	if !checksum.Equal(md.Checksums[pluginName], sum) {
		return "", nil
	}

	for _, candidate := range []string{
		filepath.Join(latest, MetaDir, filepath.FromSlash(relPath)),
		filepath.Join(latest, filepath.FromSlash(relPath)),
	} {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		got, err := checksum.File(candidate)
		if err != nil {
			return "", err
		}
		if !checksum.Equal(got, sum) {
			m.logger.Warn("previous snapshot file does not match its recorded checksum",
				"path", candidate, "plugin", pluginName)
			return "", nil
		}
		return candidate, nil
	}
	return "", nil
}

// CopyFromLatest copies relPath from the newest snapshot other than
// targetDir into targetDir. It reports whether a file was copied.
func (m *Manager) CopyFromLatest(relPath, targetDir string) (bool, error) {
	latest, err := m.FindLatestExcluding(targetDir)
	if err != nil || latest == "" {
		return false, err
	}

	rel := filepath.FromSlash(relPath)
	for _, pair := range [][2]string{
		{filepath.Join(latest, MetaDir, rel), filepath.Join(targetDir, MetaDir, rel)},
		{filepath.Join(latest, rel), filepath.Join(targetDir, rel)},
	} {
		if _, err := os.Stat(pair[0]); err != nil {
			continue
		}
		if err := fileutil.Copy(pair[0], pair[1]); err != nil {
			return false, errors.Wrap(err, "copying file from latest snapshot")
		}
		return true, nil
	}
	return false, nil
}

// checksumSkip lists the files left out of a directory checksum.
var checksumSkip = []string{MetaDir + "/" + MetadataFile, LegacyMetadataFile}

// Finalize computes the directory checksum of dir and records it in the
// snapshot's metadata.
func (m *Manager) Finalize(dir string) error {
	sum, err := checksum.Directory(dir, checksumSkip...)
	if err != nil {
		return errors.Wrap(err, "computing directory checksum")
	}

	md, err := m.LoadMetadata(dir)
	if err != nil {
		return err
	}
	md.DirectoryChecksum = sum

	return m.SaveMetadata(dir, md)
}

// Verify recomputes the directory checksum of dir and compares it with the
// recorded one.
func (m *Manager) Verify(dir string) error {
	md, err := m.LoadMetadata(dir)
	if err != nil {
		return err
	}
	if md.DirectoryChecksum == "" {
		return errors.Mark(errors.Newf("snapshot %s was never finalized", filepath.Base(dir)), errors.ErrValidation)
	}

	sum, err := checksum.Directory(dir, checksumSkip...)
	if err != nil {
		return errors.Wrap(err, "computing directory checksum")
	}
	if !checksum.Equal(sum, md.DirectoryChecksum) {
		return errors.Wrapf(ErrChecksumMismatch, "%s", filepath.Base(dir))
	}
	return nil
}

package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// ErrSnapshotNotFound is returned when a named snapshot does not exist.
var ErrSnapshotNotFound = errors.Mark(errors.New("snapshot not found"), errors.ErrNotFound)

// Dir returns the path of the named snapshot.
// Names containing path separators are rejected.
func (m *Manager) Dir(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.Wrapf(ErrSnapshotNotFound, "%q", name)
	}
	dir := filepath.Join(m.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.Wrapf(ErrSnapshotNotFound, "%q", name)
	}
	return dir, nil
}

// Get returns information about the named snapshot.
func (m *Manager) Get(name string) (Info, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return Info{}, err
	}
	return m.analyze(dir)
}

// List returns every snapshot in the store, newest first. A missing root
// yields an empty list.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("snapshots directory does not exist", "path", m.root)
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading snapshots directory")
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := m.analyze(filepath.Join(m.root, e.Name()))
		if err != nil {
			m.logger.Debug("skipping directory that is not a snapshot", "name", e.Name(), "error", err)
			continue
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].Name > infos[j].Name
		}
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// analyze builds Info for dir. Metadata supplies the creation time and
// plugin count when present; otherwise the directory's modification time
// is used and the plugin count is zero.
func (m *Manager) analyze(dir string) (Info, error) {
	info := Info{
		Name: filepath.Base(dir),
		Path: dir,
	}

	if md, err := m.LoadMetadata(dir); err == nil && !md.Timestamp.IsZero() {
		info.CreatedAt = md.Timestamp
		info.PluginCount = len(md.Checksums)
	} else {
		st, err := os.Stat(dir)
		if err != nil {
			return Info{}, errors.Wrapf(err, "stating %s", dir)
		}
		info.CreatedAt = st.ModTime().UTC()
	}

	size, err := fileutil.DirSize(dir)
	if err != nil {
		return Info{}, err
	}
	info.SizeBytes = size

	return info, nil
}

// CleanByName deletes the named snapshot. With dryRun the snapshot is only
// checked for existence.
func (m *Manager) CleanByName(name string, dryRun bool) error {
	dir, err := m.Dir(name)
	if err != nil {
		return err
	}
	if dryRun {
		m.logger.Info("would delete snapshot", "name", name)
		return nil
	}
	m.logger.Info("deleting snapshot", "name", name)
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "deleting snapshot %s", name)
	}
	return nil
}

// CleanByRetention deletes every snapshot created more than maxAge ago and
// returns the ones removed (or, with dryRun, the ones that would be).
func (m *Manager) CleanByRetention(maxAge time.Duration, dryRun bool) ([]Info, error) {
	infos, err := m.List()
	if err != nil {
		return nil, err
	}

	cutoff := m.now().Add(-maxAge)
	var victims []Info
	for _, info := range infos {
		if info.CreatedAt.Before(cutoff) {
			victims = append(victims, info)
		}
	}
	return victims, m.remove(victims, dryRun)
}

// CleanKeepLatest deletes all but the keep newest snapshots.
func (m *Manager) CleanKeepLatest(keep int, dryRun bool) ([]Info, error) {
	if keep < 0 {
		return nil, errors.Mark(errors.Newf("keep must be non-negative, got %d", keep), errors.ErrValidation)
	}
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}
	victims := infos[keep:]
	return victims, m.remove(victims, dryRun)
}

func (m *Manager) remove(victims []Info, dryRun bool) error {
	for _, v := range victims {
		created := v.CreatedAt.Local().Format("2006-01-02 15:04:05")
		if dryRun {
			m.logger.Info("would delete snapshot", "name", v.Name, "created", created)
			continue
		}
		m.logger.Info("deleting snapshot", "name", v.Name, "created", created)
		if err := os.RemoveAll(v.Path); err != nil {
			return errors.Wrapf(err, "deleting snapshot %s", v.Name)
		}
	}
	return nil
}

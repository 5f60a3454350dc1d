package backup

import (
	"os"
	"sync"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Session collects the backups taken during one restore. Each label is
// backed up at most once per session, however often Ensure is called.
// It is safe for concurrent use.
type Session struct {
	ID   string
	Path string

	mgr  *Manager
	mu   sync.Mutex
	done map[string]*Manifest
}

// NewSession creates the directory for a new backup session.
func (m *Manager) NewSession() (*Session, error) {
	if err := os.MkdirAll(m.rootDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating backup directory")
	}

	// Retry when another process claims the same ID between lookup and
	// creation.
	for range 3 {
		id := m.NextSessionID()
		path := m.SessionPath(id)
		err := os.Mkdir(path, 0o700)
		if err == nil {
			return &Session{ID: id, Path: path, mgr: m, done: make(map[string]*Manifest)}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "creating backup session")
		}
	}
	return nil, errors.New("could not allocate a backup session")
}

// Ensure backs up paths under label unless label was already backed up in
// this session. It returns the label's manifest, or nil when none of the
// paths exist.
func (s *Session) Ensure(label string, paths []string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mf, ok := s.done[label]; ok {
		return mf, nil
	}

	mf, err := s.mgr.Backup(s.ID, label, paths)
	if err != nil {
		if errors.Is(err, ErrNothingToBackUp) {
			s.done[label] = nil
			return nil, nil
		}
		return nil, errors.Wrapf(err, "creating backup for %s", label)
	}

	s.done[label] = mf
	return mf, nil
}

// Manifests returns the number of labels backed up so far.
func (s *Session) Manifests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, mf := range s.done {
		if mf != nil {
			n++
		}
	}
	return n
}

// Close removes the session directory when nothing was backed up.
func (s *Session) Close() error {
	if s.Manifests() > 0 {
		return nil
	}
	if err := os.RemoveAll(s.Path); err != nil {
		return errors.Wrap(err, "removing empty backup session")
	}
	return nil
}

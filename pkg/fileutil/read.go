package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Size limits for ReadLimited.
const (
	// MaxContentSize bounds a single file captured into plugin content.
	MaxContentSize int64 = 16 << 20

	// MaxConfigSize bounds the configuration file.
	MaxConfigSize int64 = 1 << 20
)

// ErrFileTooLarge is returned by ReadLimited when a file exceeds its limit.
var ErrFileTooLarge = errors.Mark(errors.New("file too large"), errors.ErrValidation)

// ReadLimited reads path, failing with ErrFileTooLarge if it holds more
// than limit bytes. Files that grow while being read are caught as well.
func ReadLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	tooLarge := func() error {
		return errors.Wrapf(ErrFileTooLarge, "%s exceeds %d bytes", path, limit)
	}

	if info, err := f.Stat(); err == nil && info.Size() > limit {
		return nil, tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	if int64(len(data)) > limit {
		return nil, tooLarge()
	}
	return data, nil
}

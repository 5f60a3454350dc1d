package builtin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

// File captures a single configuration file.
type File struct {
	plugin.Base

	// Desc is returned by Description.
	Desc string

	// Path is the captured file. A leading "~" is expanded.
	Path string
}

var _ plugin.Plugin = (*File)(nil)

// Description implements plugin.Plugin.
func (f *File) Description() string { return f.Desc }

// Execute returns the file's content.
func (f *File) Execute(context.Context, string) (string, error) {
	data, err := fileutil.ReadLimited(f.source(), fileutil.MaxContentSize)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", f.source())
	}
	return string(data), nil
}

// Validate checks that the file exists and is not a directory.
func (f *File) Validate(context.Context) error {
	info, err := os.Stat(f.source())
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Mark(errors.Newf("%s does not exist", f.source()), errors.ErrNotFound)
		}
		return errors.Wrapf(err, "checking %s", f.source())
	}
	if info.IsDir() {
		return errors.Mark(errors.Newf("%s is a directory", f.source()), errors.ErrValidation)
	}
	return nil
}

// RestoreTargetDir defaults to the directory the file was captured from.
func (f *File) RestoreTargetDir() string {
	if dir := f.Base.RestoreTargetDir(); dir != "" {
		return dir
	}
	return filepath.Dir(f.source())
}

// Restore copies the stored file to targetPath under its original name.
func (f *File) Restore(_ context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error) {
	return restoreFile(snapshotPath, filepath.Join(targetPath, filepath.Base(f.source())), dryRun)
}

func (f *File) source() string {
	return paths.ExpandHome(f.Path)
}

// restoreFile copies src to dst, creating parent directories. With dryRun
// set it only reports dst.
func restoreFile(src, dst string, dryRun bool) ([]string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrapf(err, "stating %s", src)
	}
	if info.IsDir() {
		return nil, errors.Mark(errors.Newf("%s is a directory", src), errors.ErrValidation)
	}
	if dryRun {
		return []string{dst}, nil
	}
	if err := fileutil.Copy(src, dst); err != nil {
		return nil, err
	}
	return []string{dst}, nil
}

package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Copy copies src to dst. A regular file is copied as a file; a directory is
// copied recursively. Parent directories of dst are created as needed.
func Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "stating %s", src)
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory %s", dst)
		}
		return CopyDir(src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory %s", filepath.Dir(dst))
	}
	return CopyFile(src, dst)
}

// CopyDir recursively copies a directory from src to dst.
// dst is expected to already exist.
func CopyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "reading directory %s", src)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return errors.Wrapf(err, "creating directory %s", dstPath)
			}
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

// CopyFile copies a single file from src to dst, preserving its mode.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening source file %s", src)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return errors.Wrapf(err, "stating source file %s", src)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "creating destination file %s", dst)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.Wrapf(err, "copying content from %s to %s", src, dst)
	}

	return errors.Wrapf(dstFile.Close(), "closing %s", dst)
}

// DirSize returns the total size in bytes of all regular files under dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "walking %s", dir)
	}
	return total, nil
}

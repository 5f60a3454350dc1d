// Package checksum computes the content hashes snapshots use for reuse
// detection and finalization.
//
// All checksums are lowercase hex SHA-256 digests. A directory checksum is
// the digest of the sorted "relpath:digest" lines of every regular file below
// the directory, so it changes when any file is added, removed, renamed or
// edited.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Content returns the SHA-256 hex digest of content.
func Content(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// File returns the SHA-256 hex digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hashing %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Directory returns the checksum of every regular file below dir.
// Paths in skip are slash-separated and relative to dir; matching files are
// left out of the digest.
func Directory(dir string, skip ...string) (string, error) {
	excluded := make(map[string]bool, len(skip))
	for _, s := range skip {
		excluded[s] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !excluded[rel] {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "walking %s", dir)
	}

	sort.Strings(files)

	lines := make([]string, 0, len(files))
	for _, rel := range files {
		sum, err := File(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		lines = append(lines, rel+":"+sum)
	}

	return Content(strings.Join(lines, "\n")), nil
}

// Equal reports whether two checksums are identical.
func Equal(a, b string) bool {
	return a != "" && a == b
}

package builtin

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/dotsnapshot/internal/checksum"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/pkg/fileutil"
)

const (
	// StaticDir is the default snapshot directory static files are copied into.
	StaticDir = "static"

	// homePrefix holds files that lived under the home directory.
	homePrefix = "home"

	// ChecksumPrefix starts the first line of the static_files content.
	ChecksumPrefix = "STATIC_DIR_CHECKSUM:"

	noFilesContent = "No files configured"
)

// StaticFiles copies a configured list of files and directories into the
// snapshot. Files below the home directory are stored under
// static/home/<relative path>; anything else under static/<absolute path>.
type StaticFiles struct {
	plugin.Base

	// Files lists the paths to capture. A leading "~" is expanded.
	Files []string

	// Ignore holds glob patterns. A file is skipped when a pattern matches
	// its full path, its base name or any path component.
	Ignore []string

	// Home overrides the home directory, for tests.
	Home string
}

var _ plugin.Plugin = (*StaticFiles)(nil)

// StaticSummary is the JSON content recorded for a static_files run.
type StaticSummary struct {
	TotalFiles      int      `json:"total_files"`
	Copied          int      `json:"copied"`
	Failed          int      `json:"failed"`
	Ignored         int      `json:"ignored"`
	StaticDirectory string   `json:"static_directory"`
	Files           []string `json:"files,omitempty"`
}

// Description implements plugin.Plugin.
func (s *StaticFiles) Description() string {
	return "Copies configured files into the snapshot's static directory"
}

// TargetPath defaults to StaticDir.
func (s *StaticFiles) TargetPath() string {
	if tp := s.Base.TargetPath(); tp != "" {
		return tp
	}
	return StaticDir
}

// CreatesOwnOutputFiles implements plugin.Plugin. It returns true.
func (s *StaticFiles) CreatesOwnOutputFiles() bool { return true }

// Validate implements plugin.Plugin. Missing files are reported by Execute
// so one stale entry does not fail the whole plugin.
func (s *StaticFiles) Validate(context.Context) error {
	for _, pattern := range s.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return errors.Mark(errors.Wrapf(err, "ignore pattern %q", pattern), errors.ErrValidation)
		}
	}
	return nil
}

// Execute copies every configured file below snapshotDir/TargetPath and
// returns a summary prefixed with the directory checksum.
func (s *StaticFiles) Execute(ctx context.Context, snapshotDir string) (string, error) {
	if len(s.Files) == 0 {
		return noFilesContent, nil
	}

	logger := logging.FromContext(ctx)
	staticDir := filepath.Join(snapshotDir, filepath.FromSlash(s.TargetPath()))
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", staticDir)
	}

	summary := StaticSummary{StaticDirectory: s.TargetPath()}
	for _, entry := range s.Files {
		src := paths.Expand(entry)
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != src && s.ignored(path) {
					summary.Ignored++
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			summary.TotalFiles++
			if s.ignored(path) {
				summary.Ignored++
				return nil
			}

			rel := s.storedPath(path)
			if err := fileutil.Copy(path, filepath.Join(staticDir, rel)); err != nil {
				logger.Warn("copying static file failed", "path", path, "error", err)
				summary.Failed++
				return nil
			}
			summary.Copied++
			summary.Files = append(summary.Files, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			logger.Warn("static file unavailable", "path", src, "error", err)
			summary.TotalFiles++
			summary.Failed++
		}
	}

	sum, err := checksum.Directory(staticDir)
	if err != nil {
		return "", err
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding static files summary")
	}
	return ChecksumPrefix + sum + "\n" + string(body), nil
}

// Restore copies the stored tree back. Files from static/home go below
// targetPath. Other files go back to their absolute location when
// targetPath is the home directory, otherwise below targetPath as well.
func (s *StaticFiles) Restore(_ context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error) {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, errors.Wrapf(err, "stating %s", snapshotPath)
	}
	if !info.IsDir() {
		return nil, errors.Mark(errors.Newf("%s is not a directory", snapshotPath), errors.ErrValidation)
	}

	root := targetPath
	if filepath.Clean(targetPath) == filepath.Clean(s.home()) {
		root = string(filepath.Separator)
	}

	var restored []string
	err = filepath.WalkDir(snapshotPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(snapshotPath, path)
		if err != nil {
			return err
		}

		var dst string
		if after, ok := strings.CutPrefix(filepath.ToSlash(rel), homePrefix+"/"); ok {
			dst = filepath.Join(targetPath, filepath.FromSlash(after))
		} else {
			dst = filepath.Join(root, rel)
		}

		if !dryRun {
			if err := fileutil.Copy(path, dst); err != nil {
				return err
			}
		}
		restored = append(restored, dst)
		return nil
	})
	if err != nil {
		return restored, errors.Wrap(err, "restoring static files")
	}
	return restored, nil
}

// storedPath maps an absolute source path to its location below the
// static directory.
func (s *StaticFiles) storedPath(path string) string {
	if home := s.home(); home != "" {
		if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(homePrefix, rel)
		}
	}
	return strings.TrimLeft(filepath.Clean(path), `/\`)
}

func (s *StaticFiles) ignored(path string) bool {
	for _, pattern := range s.Ignore {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if part == "" {
				continue
			}
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

func (s *StaticFiles) home() string {
	if s.Home != "" {
		return s.Home
	}
	return paths.Home()
}

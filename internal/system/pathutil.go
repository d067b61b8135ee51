package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents. It returns the directories
// it created, outermost first, so callers can undo the creation.
func EnsureDir(path string, perm os.FileMode) ([]string, error) {
	path = filepath.Clean(path)

	var missing []string
	for dir := path; ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%s exists and is not a directory", dir)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append([]string{dir}, missing...)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	if len(missing) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return nil, err
	}
	return missing, nil
}

// StatRegular returns the file info for path, failing unless it is a regular
// file.
func StatRegular(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return info, nil
}

// ResolvePath returns the absolute, symlink-free form of path. Trailing
// components that do not exist yet are kept as given.
func ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var rest []string
	for dir := abs; ; dir = filepath.Dir(dir) {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
	}
}

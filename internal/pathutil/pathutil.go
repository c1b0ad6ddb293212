// Package pathutil resolves the "~" and relative paths spec §6's config
// layer and cmd/rsenv accept for vault_base_dir and other path-shaped
// settings into clean absolute paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" or "~/" with the current user's home
// directory. Any other path, including an empty one, is returned unchanged.
func ExpandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			if err == nil {
				err = os.ErrNotExist
			}
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// CleanAbsFrom expands home and, if path is still relative, joins it onto
// cwd (or the process's current directory if cwd is empty), returning a
// cleaned absolute path.
func CleanAbsFrom(cwd, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path required")
	}
	path, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	cwd = strings.TrimSpace(cwd)
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Clean(filepath.Join(cwd, path)), nil
}

// CleanAbs is CleanAbsFrom using the process's current directory.
func CleanAbs(path string) (string, error) {
	return CleanAbsFrom("", path)
}

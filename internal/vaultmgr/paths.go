package vaultmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading "~" or "~/" component using the current
// user's home directory.
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

// CleanAbsFrom expands and cleans path into an absolute form, resolving a
// relative path against cwd (the process working directory if cwd is
// empty).
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

// substituteHome replaces a leading home-directory prefix of path with the
// literal string "$HOME", the form the rsenv section records so envrc
// stays portable across machines sharing a vault.
func substituteHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "$HOME"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "$HOME" + path[len(home):]
	}
	return path
}

// expandHomeVar expands a leading "$HOME" token back into the real home
// directory, the inverse of substituteHome.
func expandHomeVar(path string) string {
	if !strings.HasPrefix(path, "$HOME") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return home + strings.TrimPrefix(path, "$HOME")
}

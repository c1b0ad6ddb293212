// Package hook installs, removes, and detects the pre-commit hook spec §6
// describes: a script at "<vault>/.git/hooks/pre-commit" that runs
// "rsenv sops status --check" and blocks the commit on non-zero exit. The
// hook script carries a signature substring so "status" can recognize it as
// rsenv-managed without parsing the whole file.
package hook

import (
	"path/filepath"
	"strings"

	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Signature is the substring status checks for to classify an existing
// pre-commit hook as rsenv-managed.
const Signature = "# managed-by: rsenv sops status --check"

// Script renders the installable pre-commit hook body.
func Script() string {
	return strings.Join([]string{
		"#!/bin/sh",
		Signature,
		"rsenv sops status --check",
		"exit $?",
		"",
	}, "\n")
}

// IsManaged reports whether data is an rsenv-managed pre-commit hook.
func IsManaged(data []byte) bool {
	return strings.Contains(string(data), Signature)
}

// path is the conventional pre-commit hook location under a vault's .git.
func path(vaultPath string) string {
	return filepath.Join(vaultPath, ".git", "hooks", "pre-commit")
}

// Install writes the managed pre-commit hook into vaultPath's .git/hooks,
// refusing to overwrite an existing hook that isn't already rsenv-managed.
func Install(fs fsx.FileSystem, vaultPath string) error {
	p := path(vaultPath)
	if fs.Exists(p) {
		data, err := fs.ReadFile(p)
		if err != nil {
			return rserr.Io("read", p, err)
		}
		if !IsManaged(data) {
			return rserr.AlreadyExists("hook-install", p, errUnmanagedHookExists)
		}
	}
	if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return rserr.Io("mkdir", filepath.Dir(p), err)
	}
	if err := fs.WriteFileAtomic(p, []byte(Script())); err != nil {
		return rserr.Io("write", p, err)
	}
	return nil
}

// Remove deletes the pre-commit hook at vaultPath's .git/hooks, but only if
// it is rsenv-managed; a foreign hook is left untouched.
func Remove(fs fsx.FileSystem, vaultPath string) error {
	p := path(vaultPath)
	if !fs.Exists(p) {
		return nil
	}
	data, err := fs.ReadFile(p)
	if err != nil {
		return rserr.Io("read", p, err)
	}
	if !IsManaged(data) {
		return rserr.AlreadyExists("hook-remove", p, errUnmanagedHookExists)
	}
	if err := fs.Remove(p); err != nil {
		return rserr.Io("remove", p, err)
	}
	return nil
}

// Status reports whether vaultPath has a pre-commit hook installed and
// whether it is the rsenv-managed one.
func Status(fs fsx.FileSystem, vaultPath string) (installed, managed bool, err error) {
	p := path(vaultPath)
	if !fs.Exists(p) {
		return false, false, nil
	}
	data, err := fs.ReadFile(p)
	if err != nil {
		return true, false, rserr.Io("read", p, err)
	}
	return true, IsManaged(data), nil
}

var errUnmanagedHookExists = hookErr("a pre-commit hook already exists that rsenv did not install")

type hookErr string

func (e hookErr) Error() string { return string(e) }

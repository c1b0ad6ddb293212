package vaultmgr

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aureuma/rsenv/internal/rserr"
)

// Guard moves file into its project's vault guarded/ subtree and replaces
// it with a symlink. It fails if file is already a symlink into a
// guarded/ subtree, or if no enclosing project vault can be found.
func (m *Manager) Guard(file string, absolute bool) error {
	file = filepath.Clean(file)
	if info, err := m.FS.Lstat(file); err == nil && info.IsLink {
		target, rerr := m.FS.Readlink(file)
		if rerr == nil {
			resolved := resolveRelativeTo(filepath.Dir(file), target)
			if strings.Contains(filepath.ToSlash(resolved), "/guarded/") {
				return rserr.AlreadyGuarded("guard", file, fmt.Errorf("already a symlink into guarded/"))
			}
		}
	}

	project, err := m.findEnclosingProject(filepath.Dir(file))
	if err != nil {
		return err
	}
	vault, ok, err := m.Discover(project)
	if err != nil {
		return err
	}
	if !ok {
		return rserr.NotFound("guard", project, fmt.Errorf("no vault discovered"))
	}

	rel, err := NeutralizedRelative(project, file)
	if err != nil {
		return rserr.Io("guard", file, err)
	}
	target := filepath.Join(vault.Path, "guarded", rel)
	if err := m.FS.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return rserr.Io("guard", target, err)
	}
	if err := m.FS.Move(file, target); err != nil {
		return rserr.Io("move", file, err)
	}

	linkTarget := target
	if !absolute {
		if r, err := filepath.Rel(filepath.Dir(file), target); err == nil {
			linkTarget = r
		}
	}
	if err := m.FS.Symlink(linkTarget, file); err != nil {
		return rserr.Io("symlink", file, err)
	}
	return nil
}

// Unguard requires file to be a symlink, moves its target back into place,
// and removes the link.
func (m *Manager) Unguard(file string) error {
	file = filepath.Clean(file)
	info, err := m.FS.Lstat(file)
	if err != nil {
		return rserr.NotFound("unguard", file, err)
	}
	if !info.IsLink {
		return rserr.InvalidFormat("unguard", file, fmt.Errorf("not a symlink"))
	}
	target, err := m.FS.Readlink(file)
	if err != nil {
		return rserr.Io("readlink", file, err)
	}
	resolved := resolveRelativeTo(filepath.Dir(file), target)
	if !m.FS.Exists(resolved) {
		return rserr.NotFound("unguard", resolved, fmt.Errorf("guarded target missing"))
	}
	if err := m.FS.Remove(file); err != nil {
		return rserr.Io("remove", file, err)
	}
	if err := m.FS.Move(resolved, file); err != nil {
		return rserr.Io("move", resolved, err)
	}
	return nil
}

func resolveRelativeTo(dir, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(dir, target))
}

// findEnclosingProject walks dir and its ancestors looking for a directory
// whose ".envrc" is a symlink, i.e. a directory with a discovered vault.
func (m *Manager) findEnclosingProject(dir string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		if _, ok, err := m.Discover(dir); err != nil {
			return "", err
		} else if ok {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", rserr.NotFound("guard", dir, fmt.Errorf("no enclosing project vault found"))
		}
		dir = parent
	}
}

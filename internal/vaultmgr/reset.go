package vaultmgr

import (
	"fmt"
	"path/filepath"

	"github.com/aureuma/rsenv/internal/dotfile"
	"github.com/aureuma/rsenv/internal/envrc"
	"github.com/aureuma/rsenv/internal/rserr"
)

// ResetReport records the per-file outcome of a Reset call: guarded-file
// restores are best-effort, so callers can inspect which ones failed
// without the whole operation aborting.
type ResetReport struct {
	Restored []string
	Failed   map[string]error
}

// Reset reverses project's vault link: every guarded file whose project
// counterpart is still a symlink is restored in place (failures are
// recorded, not fatal), the project's .envrc symlink is removed, and a
// plain .envrc is put back from the vault's envrc.backup (if present) or
// from dot.envrc with its rsenv section stripped. The vault directory
// itself is never deleted.
func (m *Manager) Reset(project string) (ResetReport, error) {
	project = filepath.Clean(project)
	vault, ok, err := m.Discover(project)
	if err != nil {
		return ResetReport{}, err
	}
	if !ok {
		return ResetReport{}, rserr.NotFound("reset", project, fmt.Errorf("no vault discovered"))
	}

	report := ResetReport{Failed: map[string]error{}}
	guardedDir := filepath.Join(vault.Path, "guarded")
	if m.FS.Exists(guardedDir) {
		if err := m.restoreGuardedTree(project, guardedDir, &report); err != nil {
			return report, err
		}
	}

	link := filepath.Join(project, ".envrc")
	if info, err := m.FS.Lstat(link); err == nil && info.IsLink {
		if err := m.FS.Remove(link); err != nil {
			return report, rserr.Io("remove", link, err)
		}
	}

	if err := m.restoreProjectEnvrc(vault, project); err != nil {
		return report, err
	}
	return report, nil
}

// restoreGuardedTree walks guarded/ deepest-first and moves each leaf whose
// project counterpart is a symlink back into place.
func (m *Manager) restoreGuardedTree(project, guardedDir string, report *ResetReport) error {
	var leaves []string
	var walk func(rel string) error
	walk = func(rel string) error {
		dir := filepath.Join(guardedDir, rel)
		entries, err := m.FS.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			childRel := e.Name
			if rel != "" {
				childRel = filepath.Join(rel, e.Name)
			}
			if e.IsDir {
				if err := walk(childRel); err != nil {
					return err
				}
			}
			leaves = append(leaves, childRel)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return rserr.Io("reset", guardedDir, err)
	}

	for _, rel := range leaves {
		projectRel := dotfile.Restore(rel)
		projectPath := filepath.Join(project, projectRel)
		info, err := m.FS.Lstat(projectPath)
		if err != nil || !info.IsLink {
			continue
		}
		vaultPath := filepath.Join(guardedDir, rel)
		if err := m.FS.Remove(projectPath); err != nil {
			report.Failed[projectRel] = err
			continue
		}
		if err := m.FS.Move(vaultPath, projectPath); err != nil {
			report.Failed[projectRel] = err
			continue
		}
		report.Restored = append(report.Restored, projectRel)
	}
	return nil
}

func (m *Manager) restoreProjectEnvrc(vault Vault, project string) error {
	link := filepath.Join(project, ".envrc")
	backup := filepath.Join(vault.Path, "envrc.backup")
	if m.FS.Exists(backup) {
		return m.FS.Move(backup, link)
	}

	dotEnvrc := filepath.Join(vault.Path, "dot.envrc")
	if !m.FS.Exists(dotEnvrc) {
		return nil
	}
	data, err := m.FS.ReadFile(dotEnvrc)
	if err != nil {
		return rserr.Io("read", dotEnvrc, err)
	}
	lines, err := envrc.Delete(splitLines(string(data)))
	if err != nil {
		return rserr.InvalidFormat("reset", dotEnvrc, err)
	}
	if err := writeLines(m.FS, link, lines); err != nil {
		return err
	}
	return m.FS.Remove(dotEnvrc)
}

// Package swapmgr implements the swap state machine: atomically exchanging
// a project file with a vault-held override, with the vault itself holding
// a sentinel that records which host currently owns the swap so concurrent
// swaps from another machine are rejected cleanly.
package swapmgr

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aureuma/rsenv/internal/dotfile"
	"github.com/aureuma/rsenv/internal/envrc"
	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/hostid"
	"github.com/aureuma/rsenv/internal/rserr"
	"github.com/aureuma/rsenv/internal/vaultmgr"
)

const (
	sentinelSuffix = ".rsenv_active"
	backupSuffix   = ".rsenv_original"
)

// State is a SwapFile's current position.
type State int

const (
	StateOut State = iota
	StateIn
)

func (s State) String() string {
	if s == StateIn {
		return "in"
	}
	return "out"
}

// SwapFile is one logical asset tracked under a vault's swap/ subtree.
type SwapFile struct {
	Rel   string // neutralized relative path under <vault>/swap/
	State State
	Host  string // set only when State == StateIn
}

// Manager drives swap-init/in/out/status/delete against a project's vault.
type Manager struct {
	FS    fsx.FileSystem
	Host  hostid.Resolver
	Vault *vaultmgr.Manager
}

// NewManager returns a Manager backed by fs, using host to resolve the
// local machine's hostname for sentinel arbitration.
func NewManager(fs fsx.FileSystem, host hostid.Resolver, vault *vaultmgr.Manager) *Manager {
	return &Manager{FS: fs, Host: host, Vault: vault}
}

func (m *Manager) requireVault(action, project string) (vaultmgr.Vault, error) {
	v, ok, err := m.Vault.Discover(project)
	if err != nil {
		return vaultmgr.Vault{}, err
	}
	if !ok {
		return vaultmgr.Vault{}, rserr.NotFound(action, project, fmt.Errorf("no vault discovered"))
	}
	return v, nil
}

func sentinelName(basename, host string) string {
	return basename + "." + host + sentinelSuffix
}

func backupName(basename string) string {
	return basename + backupSuffix
}

// findAnySentinel scans dir's immediate entries for a sentinel matching
// basename, returning the hostname it was swapped in from.
func findAnySentinel(fs fsx.FileSystem, dir, basename string) (host string, found bool, err error) {
	if !fs.Exists(dir) {
		return "", false, nil
	}
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	prefix := basename + "."
	for _, e := range entries {
		if !strings.HasSuffix(e.Name, sentinelSuffix) || !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		return strings.TrimSuffix(strings.TrimPrefix(e.Name, prefix), sentinelSuffix), true, nil
	}
	return "", false, nil
}

// relAndNeutral returns file's path relative to project, and that path
// with every dotfile component mapped to its vault "dot." form.
func relAndNeutral(project, file string) (rel, neutralRel string, err error) {
	rel, err = filepath.Rel(project, file)
	if err != nil {
		return "", "", err
	}
	return rel, dotfile.Neutralize(rel), nil
}

// SwapInit moves each file in files out of project and into the vault's
// swap/ subtree, leaving the project position empty. State becomes Out.
func (m *Manager) SwapInit(project string, files []string) error {
	vault, err := m.requireVault("swap-init", project)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := m.swapInitOne(vault, project, file); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) swapInitOne(vault vaultmgr.Vault, project, file string) error {
	if !m.FS.Exists(file) {
		return rserr.NotFound("swap-init", file, fmt.Errorf("project file does not exist"))
	}
	rel, neutralRel, err := relAndNeutral(project, file)
	if err != nil {
		return rserr.Io("swap-init", file, err)
	}
	finalDst := filepath.Join(vault.Path, "swap", neutralRel)
	if m.FS.Exists(finalDst) {
		return rserr.AlreadyExists("swap-init", finalDst, fmt.Errorf("vault target already occupied"))
	}

	dst := filepath.Join(vault.Path, "swap", rel)
	if err := m.FS.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return rserr.Io("mkdir", filepath.Dir(dst), err)
	}
	if err := m.FS.Move(file, dst); err != nil {
		return rserr.Io("move", file, err)
	}

	if fsx.IsDir(m.FS, dst) {
		if err := dotfile.NeutralizeTree(m.FS, dst); err != nil {
			return rserr.Io("neutralize", dst, err)
		}
	}
	if dst != finalDst {
		if err := m.FS.MkdirAll(filepath.Dir(finalDst), 0o700); err != nil {
			return rserr.Io("mkdir", filepath.Dir(finalDst), err)
		}
		if err := m.FS.Rename(dst, finalDst); err != nil {
			return rserr.Io("rename", dst, err)
		}
	}
	return nil
}

// SwapIn swaps each file in files from the vault into project, recording
// the local hostname in a sentinel. Already-in-from-this-host files are
// skipped (idempotent); a sentinel from another host is a HostConflict with
// no side effects.
func (m *Manager) SwapIn(project string, files []string) error {
	vault, err := m.requireVault("swap-in", project)
	if err != nil {
		return err
	}
	host, err := m.Host.Hostname()
	if err != nil {
		return rserr.Io("swap-in", project, err)
	}

	var swappedAny bool
	for _, file := range files {
		did, err := m.swapInOne(vault, project, file, host)
		if err != nil {
			return err
		}
		swappedAny = swappedAny || did
	}
	if swappedAny {
		if err := m.setSwappedMarker(vault, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) swapInOne(vault vaultmgr.Vault, project, file, host string) (bool, error) {
	rel, neutralRel, err := relAndNeutral(project, file)
	if err != nil {
		return false, rserr.Io("swap-in", file, err)
	}
	parentDir := filepath.Join(vault.Path, "swap", filepath.Dir(neutralRel))
	basename := filepath.Base(neutralRel)

	existingHost, found, err := findAnySentinel(m.FS, parentDir, basename)
	if err != nil {
		return false, rserr.Io("swap-in", parentDir, err)
	}
	if found {
		if existingHost == host {
			return false, nil // already in from this host: idempotent
		}
		return false, rserr.HostConflict("swap-in", file, fmt.Errorf("already swapped in on host %q", existingHost))
	}

	assetPath := filepath.Join(vault.Path, "swap", neutralRel)
	if !m.FS.Exists(assetPath) {
		assetPath = filepath.Join(vault.Path, "swap", rel)
	}
	if !m.FS.Exists(assetPath) {
		return false, rserr.NotFound("swap-in", assetPath, fmt.Errorf("vault asset missing"))
	}
	if bad := findBareDotfiles(m.FS, assetPath); len(bad) > 0 {
		return false, rserr.InvalidFormat("swap-in", assetPath, fmt.Errorf("vault subtree still has un-neutralized entries, expected renames: %s", strings.Join(bad, ", ")))
	}

	sentinelPath := filepath.Join(parentDir, sentinelName(basename, host))
	if err := m.FS.CopyTree(assetPath, sentinelPath); err != nil {
		return false, rserr.Io("swap-in", sentinelPath, err)
	}

	backupPath := filepath.Join(parentDir, backupName(basename))
	if m.FS.Exists(file) {
		if err := m.FS.Move(file, backupPath); err != nil {
			_ = m.FS.RemoveAll(sentinelPath)
			return false, rserr.Io("move", file, err)
		}
	}

	if err := m.FS.Move(assetPath, file); err != nil {
		if m.FS.Exists(backupPath) {
			_ = m.FS.Move(backupPath, file)
		}
		_ = m.FS.RemoveAll(sentinelPath)
		return false, rserr.Io("move", assetPath, err)
	}

	if fsx.IsDir(m.FS, file) {
		if err := dotfile.RestoreTreeInPlace(m.FS, file); err != nil {
			return false, rserr.Io("restore", file, err)
		}
	}
	return true, nil
}

// SwapOut moves each currently-In file in files back into the vault,
// restoring the original project content from its backup. Already-Out
// files are skipped (idempotent); a sentinel owned by another host is a
// HostConflict with no side effects.
func (m *Manager) SwapOut(project string, files []string) error {
	vault, err := m.requireVault("swap-out", project)
	if err != nil {
		return err
	}
	localHost, err := m.Host.Hostname()
	if err != nil {
		return rserr.Io("swap-out", project, err)
	}

	for _, file := range files {
		if err := m.swapOutOne(vault, project, file, localHost); err != nil {
			return err
		}
	}

	remaining, err := m.Status(project)
	if err != nil {
		return err
	}
	stillIn := false
	for _, sf := range remaining {
		if sf.State == StateIn {
			stillIn = true
			break
		}
	}
	if !stillIn {
		if err := m.setSwappedMarker(vault, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) swapOutOne(vault vaultmgr.Vault, project, file, localHost string) error {
	_, neutralRel, err := relAndNeutral(project, file)
	if err != nil {
		return rserr.Io("swap-out", file, err)
	}
	parentDir := filepath.Join(vault.Path, "swap", filepath.Dir(neutralRel))
	basename := filepath.Base(neutralRel)

	host, found, err := findAnySentinel(m.FS, parentDir, basename)
	if err != nil {
		return rserr.Io("swap-out", parentDir, err)
	}
	if !found {
		return nil // already out: idempotent
	}
	if host != localHost {
		return rserr.HostConflict("swap-out", file, fmt.Errorf("swapped in on host %q", host))
	}

	vaultDst := filepath.Join(vault.Path, "swap", neutralRel)
	if m.FS.Exists(file) {
		if err := m.FS.MkdirAll(filepath.Dir(vaultDst), 0o700); err != nil {
			return rserr.Io("mkdir", filepath.Dir(vaultDst), err)
		}
		if err := m.FS.Move(file, vaultDst); err != nil {
			return rserr.Io("move", file, err)
		}
		if fsx.IsDir(m.FS, vaultDst) {
			if err := dotfile.NeutralizeTree(m.FS, vaultDst); err != nil {
				return rserr.Io("neutralize", vaultDst, err)
			}
		}
	}

	backupPath := filepath.Join(parentDir, backupName(basename))
	sentinelPath := filepath.Join(parentDir, sentinelName(basename, host))
	if m.FS.Exists(backupPath) {
		if err := m.FS.Move(backupPath, file); err != nil {
			if m.FS.Exists(vaultDst) {
				_ = m.FS.Move(vaultDst, file)
			}
			return rserr.Io("move", backupPath, err)
		}
	}
	if err := m.FS.RemoveAll(sentinelPath); err != nil {
		return rserr.Io("remove", sentinelPath, err)
	}
	return nil
}

// Delete removes the vault-held asset (and backup, if any) for each file in
// files. It validates first that none of them is currently In anywhere,
// aborting with no changes if so; project positions are never touched.
func (m *Manager) Delete(project string, files []string) error {
	vault, err := m.requireVault("swap-delete", project)
	if err != nil {
		return err
	}
	type target struct {
		parentDir, basename, rel, neutralRel string
	}
	var targets []target
	for _, file := range files {
		rel, neutralRel, err := relAndNeutral(project, file)
		if err != nil {
			return rserr.Io("swap-delete", file, err)
		}
		parentDir := filepath.Join(vault.Path, "swap", filepath.Dir(neutralRel))
		basename := filepath.Base(neutralRel)
		if _, found, err := findAnySentinel(m.FS, parentDir, basename); err != nil {
			return rserr.Io("swap-delete", parentDir, err)
		} else if found {
			return rserr.AlreadyExists("swap-delete", file, fmt.Errorf("currently swapped in, swap-out first"))
		}
		targets = append(targets, target{parentDir, basename, rel, neutralRel})
	}

	for _, t := range targets {
		asset := filepath.Join(vault.Path, "swap", t.neutralRel)
		if !m.FS.Exists(asset) {
			asset = filepath.Join(vault.Path, "swap", t.rel)
		}
		if m.FS.Exists(asset) {
			if err := m.FS.RemoveAll(asset); err != nil {
				return rserr.Io("remove", asset, err)
			}
		}
		backup := filepath.Join(t.parentDir, backupName(t.basename))
		if m.FS.Exists(backup) {
			if err := m.FS.RemoveAll(backup); err != nil {
				return rserr.Io("remove", backup, err)
			}
		}
	}
	return nil
}

func (m *Manager) setSwappedMarker(vault vaultmgr.Vault, swapped bool) error {
	path := filepath.Join(vault.Path, "dot.envrc")
	data, err := m.FS.ReadFile(path)
	if err != nil {
		return rserr.Io("read", path, err)
	}
	lines := envrc.SetSwapped(splitLines(string(data)), swapped)
	return writeLines(m.FS, path, lines)
}

// findBareDotfiles returns every entry under root (recursively) whose name
// still starts with "." instead of the vault's "dot." neutral form.
func findBareDotfiles(fs fsx.FileSystem, root string) []string {
	entries, err := fs.ReadDir(root)
	if err != nil {
		return nil
	}
	var bad []string
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." && strings.HasPrefix(e.Name, ".") {
			bad = append(bad, filepath.Join(root, e.Name)+" -> "+filepath.Join(root, dotfile.NeutralizeComponent(e.Name)))
		}
		if e.IsDir {
			bad = append(bad, findBareDotfiles(fs, filepath.Join(root, e.Name))...)
		}
	}
	return bad
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(fs fsx.FileSystem, path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := fs.WriteFileAtomic(path, []byte(content)); err != nil {
		return rserr.Io("write", path, err)
	}
	return nil
}

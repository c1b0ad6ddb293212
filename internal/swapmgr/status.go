package swapmgr

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/aureuma/rsenv/internal/dotfile"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Status enumerates every asset currently tracked under project's vault
// swap/ subtree, reporting one SwapFile per logical asset, sorted by Rel.
func (m *Manager) Status(project string) ([]SwapFile, error) {
	vault, err := m.requireVault("swap-status", project)
	if err != nil {
		return nil, err
	}
	swapDir := filepath.Join(vault.Path, "swap")
	if !m.FS.Exists(swapDir) {
		return nil, nil
	}
	var out []SwapFile
	if err := m.walkSwapStatus(swapDir, "", &out); err != nil {
		return nil, rserr.Io("swap-status", swapDir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return dedupe(out), nil
}

func dedupe(in []SwapFile) []SwapFile {
	seen := map[string]bool{}
	out := make([]SwapFile, 0, len(in))
	for _, sf := range in {
		if seen[sf.Rel] {
			continue
		}
		seen[sf.Rel] = true
		out = append(out, sf)
	}
	return out
}

// walkSwapStatus groups dir's entries by logical basename (stripping the
// sentinel/backup suffix), reporting one SwapFile per basename: In when a
// sentinel sibling exists, Out when only a plain entry exists. A plain
// directory entry that itself contains nested sentinel/backup markers is
// treated as an organizational path component and walked into instead of
// being reported directly.
func (m *Manager) walkSwapStatus(swapRoot, relDir string, out *[]SwapFile) error {
	dir := filepath.Join(swapRoot, relDir)
	entries, err := m.FS.ReadDir(dir)
	if err != nil {
		return err
	}

	type group struct {
		plainName string
		hasPlain  bool
		host      string
		hasHost   bool
	}
	groups := map[string]*group{}
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name, backupSuffix):
			continue // metadata only, accompanies an already-reported sentinel
		case strings.HasSuffix(e.Name, sentinelSuffix):
			rest := strings.TrimSuffix(e.Name, sentinelSuffix)
			idx := strings.LastIndexByte(rest, '.')
			if idx < 0 {
				continue
			}
			base, host := rest[:idx], rest[idx+1:]
			g := groups[base]
			if g == nil {
				g = &group{}
				groups[base] = g
			}
			g.host, g.hasHost = host, true
		default:
			g := groups[e.Name]
			if g == nil {
				g = &group{}
				groups[e.Name] = g
			}
			g.plainName, g.hasPlain = e.Name, true
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, base := range names {
		g := groups[base]
		rel := base
		if relDir != "" {
			rel = filepath.Join(relDir, base)
		}
		if g.hasHost {
			*out = append(*out, SwapFile{Rel: rel, State: StateIn, Host: g.host})
			continue
		}
		if !g.hasPlain {
			continue
		}
		plainPath := filepath.Join(dir, g.plainName)
		info, err := m.FS.Lstat(plainPath)
		if err != nil {
			return err
		}
		if info.IsDir && m.hasNestedMarkers(plainPath) {
			if err := m.walkSwapStatus(swapRoot, rel, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, SwapFile{Rel: rel, State: StateOut})
	}
	return nil
}

// hasNestedMarkers reports whether any sentinel or backup entry exists
// anywhere below dir.
func (m *Manager) hasNestedMarkers(dir string) bool {
	entries, err := m.FS.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name, sentinelSuffix) || strings.HasSuffix(e.Name, backupSuffix) {
			return true
		}
		if e.IsDir && m.hasNestedMarkers(filepath.Join(dir, e.Name)) {
			return true
		}
	}
	return false
}

// SwapOutAll walks base looking for project directories (identified by a
// ".envrc" symlink) and swaps out every currently-In file in each.
func (m *Manager) SwapOutAll(base string) error {
	projects, err := m.findProjects(base)
	if err != nil {
		return rserr.Io("swap-out-all", base, err)
	}
	for _, project := range projects {
		status, err := m.Status(project)
		if err != nil {
			return err
		}
		var in []string
		for _, sf := range status {
			if sf.State != StateIn {
				continue
			}
			in = append(in, filepath.Join(project, dotfile.Restore(sf.Rel)))
		}
		if len(in) == 0 {
			continue
		}
		if err := m.SwapOut(project, in); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) findProjects(dir string) ([]string, error) {
	var projects []string
	var walk func(string) error
	walk = func(d string) error {
		link := filepath.Join(d, ".envrc")
		if info, err := m.FS.Lstat(link); err == nil && info.IsLink {
			projects = append(projects, d)
			return nil
		}
		entries, err := m.FS.ReadDir(d)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir && !e.IsLink {
				if err := walk(filepath.Join(d, e.Name)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	return projects, nil
}

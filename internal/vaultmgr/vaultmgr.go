// Package vaultmgr implements the vault lifecycle: init, discover, guard,
// unguard, reset, and reconnect, described for the project-to-vault
// relationship a ".envrc" symlink encodes.
package vaultmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aureuma/rsenv/internal/dotfile"
	"github.com/aureuma/rsenv/internal/envrc"
	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/hierarchy"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Vault identifies one initialized vault directory.
type Vault struct {
	Path     string
	Sentinel string
}

// DefaultEnvs is the set of environment files init populates, with
// Parent naming the .env file each links to ("" for the root).
var DefaultEnvs = []struct {
	Name   string
	Parent string
}{
	{"none.env", ""},
	{"local.env", "none.env"},
	{"test.env", "none.env"},
	{"int.env", "none.env"},
	{"e2e.env", "none.env"},
	{"prod.env", "none.env"},
}

// Manager is the entry point for vault lifecycle operations; it is
// constructed with the capabilities (filesystem) it needs so no global
// state is required.
type Manager struct {
	FS        fsx.FileSystem
	VaultBase string
}

// NewManager returns a Manager rooted at vaultBase (the directory under
// which every project's vault directory is created).
func NewManager(fs fsx.FileSystem, vaultBase string) *Manager {
	return &Manager{FS: fs, VaultBase: vaultBase}
}

// GenerateSentinelID derives "<project-basename>-<8hex>" from the current
// wall-clock nanoseconds combined with the process id.
func GenerateSentinelID(projectBasename string) string {
	mixed := uint32(time.Now().UnixNano()) ^ uint32(os.Getpid())
	return fmt.Sprintf("%s-%08x", projectBasename, mixed)
}

// Discover reports whether project already has a vault: its ".envrc" must
// be a symlink whose resolved target's basename is "dot.envrc".
func (m *Manager) Discover(project string) (Vault, bool, error) {
	link := filepath.Join(project, ".envrc")
	info, err := m.FS.Lstat(link)
	if err != nil || !info.IsLink {
		return Vault{}, false, nil
	}
	target, err := m.FS.Readlink(link)
	if err != nil {
		return Vault{}, false, nil
	}
	if filepath.Base(target) != "dot.envrc" {
		return Vault{}, false, nil
	}
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(link), target)
	}
	resolved = filepath.Clean(resolved)
	if !m.FS.Exists(resolved) {
		return Vault{}, false, nil
	}
	vaultPath := filepath.Dir(resolved)
	return Vault{Path: vaultPath, Sentinel: filepath.Base(vaultPath)}, true, nil
}

// Init creates project's vault if one does not already exist, returning the
// existing vault unchanged when it does (init is idempotent).
func (m *Manager) Init(project string, absolute bool) (Vault, error) {
	project = filepath.Clean(project)
	if v, ok, err := m.Discover(project); err != nil {
		return Vault{}, err
	} else if ok {
		return v, nil
	}

	sentinel := GenerateSentinelID(filepath.Base(project))
	vaultPath := filepath.Join(m.VaultBase, sentinel)
	for _, dir := range []string{"guarded", "swap", "envs"} {
		if err := m.FS.MkdirAll(filepath.Join(vaultPath, dir), 0o700); err != nil {
			return Vault{}, rserr.Io("init", filepath.Join(vaultPath, dir), err)
		}
	}

	dotEnvrc := filepath.Join(vaultPath, "dot.envrc")
	if err := m.absorbExistingEnvrc(project, dotEnvrc); err != nil {
		return Vault{}, err
	}

	if err := m.injectSection(dotEnvrc, vaultPath, project, absolute, sentinel); err != nil {
		return Vault{}, err
	}

	if err := m.populateDefaultEnvs(vaultPath); err != nil {
		return Vault{}, err
	}

	if err := m.linkProject(project, dotEnvrc, absolute); err != nil {
		return Vault{}, err
	}

	return Vault{Path: vaultPath, Sentinel: sentinel}, nil
}

// absorbExistingEnvrc moves a regular-file .envrc into the vault, drops a
// pre-existing symlink, or creates an empty dot.envrc if neither exists.
func (m *Manager) absorbExistingEnvrc(project, dotEnvrc string) error {
	link := filepath.Join(project, ".envrc")
	info, err := m.FS.Lstat(link)
	switch {
	case err != nil:
		return m.FS.WriteFileAtomic(dotEnvrc, nil)
	case info.IsLink:
		if err := m.FS.Remove(link); err != nil {
			return rserr.Io("init", link, err)
		}
		return m.FS.WriteFileAtomic(dotEnvrc, nil)
	default:
		if err := m.FS.Move(link, dotEnvrc); err != nil {
			return rserr.Io("move", link, err)
		}
		return nil
	}
}

func (m *Manager) injectSection(dotEnvrc, vaultPath, project string, absolute bool, sentinel string) error {
	data, _ := m.FS.ReadFile(dotEnvrc)
	lines := splitLines(string(data))

	sec := envrc.Section{
		Relative:  !absolute,
		Version:   2,
		Sentinel:  sentinel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SourceDir: substituteHome(project),
		Vault:     substituteHome(vaultPath),
	}
	out, err := envrc.Upsert(lines, sec)
	if err != nil {
		return rserr.InvalidFormat("init", dotEnvrc, err)
	}
	return writeLines(m.FS, dotEnvrc, out)
}

func (m *Manager) populateDefaultEnvs(vaultPath string) error {
	envsDir := filepath.Join(vaultPath, "envs")
	for _, e := range DefaultEnvs {
		path := filepath.Join(envsDir, e.Name)
		if err := m.FS.WriteFileAtomic(path, nil); err != nil {
			return rserr.Io("init", path, err)
		}
	}
	for _, e := range DefaultEnvs {
		child := filepath.Join(envsDir, e.Name)
		if e.Parent == "" {
			if err := hierarchy.Unlink(m.FS, child); err != nil {
				return err
			}
			continue
		}
		parent := filepath.Join(envsDir, e.Parent)
		if err := hierarchy.Link(m.FS, parent, child); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) linkProject(project, dotEnvrc string, absolute bool) error {
	link := filepath.Join(project, ".envrc")
	target := dotEnvrc
	if !absolute {
		rel, err := filepath.Rel(project, dotEnvrc)
		if err == nil {
			target = rel
		}
	}
	if m.FS.Exists(link) {
		return rserr.AlreadyExists("init", link, fmt.Errorf("refusing to overwrite existing .envrc"))
	}
	if err := m.FS.Symlink(target, link); err != nil {
		return rserr.Io("symlink", link, err)
	}
	return nil
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

// NeutralizedRelative returns file's path relative to project, with every
// dotfile component mapped to its vault "dot." form.
func NeutralizedRelative(project, file string) (string, error) {
	rel, err := filepath.Rel(project, file)
	if err != nil {
		return "", err
	}
	return dotfile.Neutralize(rel), nil
}

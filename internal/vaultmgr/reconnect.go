package vaultmgr

import (
	"fmt"
	"path/filepath"

	"github.com/aureuma/rsenv/internal/envrc"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Reconnect re-links project to an existing dot.envrc after its rsenv
// section's recorded source directory has drifted (e.g. the project moved).
// It is idempotent when the project's .envrc already points at dotEnvrc;
// it fails when the link points elsewhere or a regular file occupies the
// position.
func (m *Manager) Reconnect(dotEnvrc, project string) (Vault, error) {
	dotEnvrc = filepath.Clean(dotEnvrc)
	project = filepath.Clean(project)

	data, err := m.FS.ReadFile(dotEnvrc)
	if err != nil {
		return Vault{}, rserr.NotFound("reconnect", dotEnvrc, err)
	}
	lines := splitLines(string(data))
	sec, found, err := envrc.Parse(lines)
	if err != nil {
		return Vault{}, rserr.InvalidFormat("reconnect", dotEnvrc, err)
	}
	if !found {
		return Vault{}, rserr.InvalidFormat("reconnect", dotEnvrc, fmt.Errorf("no rsenv section present"))
	}

	wantSource := substituteHome(project)
	if sec.SourceDir != wantSource {
		sec.SourceDir = wantSource
		out, err := envrc.Upsert(lines, sec)
		if err != nil {
			return Vault{}, rserr.InvalidFormat("reconnect", dotEnvrc, err)
		}
		if err := writeLines(m.FS, dotEnvrc, out); err != nil {
			return Vault{}, err
		}
	}

	link := filepath.Join(project, ".envrc")
	if info, err := m.FS.Lstat(link); err == nil {
		if info.IsLink {
			target, rerr := m.FS.Readlink(link)
			if rerr == nil {
				resolved := resolveRelativeTo(filepath.Dir(link), target)
				if resolved == dotEnvrc {
					// Already connected: idempotent no-op.
					return Vault{Path: filepath.Dir(dotEnvrc), Sentinel: sec.Sentinel}, nil
				}
			}
			return Vault{}, rserr.AlreadyExists("reconnect", link, fmt.Errorf("points elsewhere"))
		}
		return Vault{}, rserr.AlreadyExists("reconnect", link, fmt.Errorf("regular file blocks .envrc position"))
	}

	if err := m.linkProject(project, dotEnvrc, sec.Relative); err != nil {
		return Vault{}, err
	}
	return Vault{Path: filepath.Dir(dotEnvrc), Sentinel: sec.Sentinel}, nil
}

package vaultmgr

import (
	"testing"

	"github.com/aureuma/rsenv/internal/fsx"
)

func TestReconnectRelinksAfterProjectMove(t *testing.T) {
	m := fsx.NewMemory()
	mgr := NewManager(m, "/vaults")
	if _, err := mgr.Init("/proj", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	vault, _, _ := mgr.Discover("/proj")
	dotEnvrc := vault.Path + "/dot.envrc"

	// Simulate the project having moved: drop its .envrc and reconnect from
	// a new location.
	if err := m.Remove("/proj/.envrc"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := mgr.Reconnect(dotEnvrc, "/moved-proj")
	if err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if got.Path != vault.Path {
		t.Fatalf("Vault.Path = %q, want %q", got.Path, vault.Path)
	}
	info, err := m.Lstat("/moved-proj/.envrc")
	if err != nil || !info.IsLink {
		t.Fatalf("expected symlink at new project location, err=%v info=%+v", err, info)
	}
}

func TestReconnectIsIdempotent(t *testing.T) {
	m := fsx.NewMemory()
	mgr := NewManager(m, "/vaults")
	if _, err := mgr.Init("/proj", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	vault, _, _ := mgr.Discover("/proj")
	dotEnvrc := vault.Path + "/dot.envrc"

	if _, err := mgr.Reconnect(dotEnvrc, "/proj"); err != nil {
		t.Fatalf("Reconnect (idempotent call): %v", err)
	}
}

func TestReconnectFailsWhenLinkPointsElsewhere(t *testing.T) {
	m := fsx.NewMemory()
	mgr := NewManager(m, "/vaults")
	if _, err := mgr.Init("/proj", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	vault, _, _ := mgr.Discover("/proj")
	dotEnvrc := vault.Path + "/dot.envrc"

	if err := m.WriteFileAtomic("/other/dot.envrc", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := m.Remove("/proj/.envrc"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Symlink("/other/dot.envrc", "/proj/.envrc"); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := mgr.Reconnect(dotEnvrc, "/proj"); err == nil {
		t.Fatalf("expected error when .envrc points elsewhere")
	}
}

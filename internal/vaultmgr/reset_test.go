package vaultmgr

import (
	"testing"

	"github.com/aureuma/rsenv/internal/fsx"
)

func TestResetRestoresGuardedFilesAndEnvrc(t *testing.T) {
	m := fsx.NewMemory()
	mgr := NewManager(m, "/vaults")

	if _, err := mgr.Init("/proj", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.WriteFileAtomic("/proj/secret.yml", []byte("k: v\n")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mgr.Guard("/proj/secret.yml", false); err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if info, err := m.Lstat("/proj/secret.yml"); err != nil || !info.IsLink {
		t.Fatalf("expected guarded symlink, err=%v info=%+v", err, info)
	}

	report, err := mgr.Reset("/proj")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(report.Restored) != 1 || report.Restored[0] != "secret.yml" {
		t.Fatalf("Restored = %v", report.Restored)
	}
	if info, err := m.Lstat("/proj/secret.yml"); err != nil || info.IsLink {
		t.Fatalf("expected plain file restored, err=%v info=%+v", err, info)
	}
	data, err := m.ReadFile("/proj/secret.yml")
	if err != nil || string(data) != "k: v\n" {
		t.Fatalf("restored content = %q, err=%v", data, err)
	}

	if info, err := m.Lstat("/proj/.envrc"); err != nil || info.IsLink {
		t.Fatalf(".envrc should be a plain file after reset, err=%v info=%+v", err, info)
	}
	if _, ok, err := mgr.Discover("/proj"); err != nil || ok {
		t.Fatalf("Discover after reset: ok=%v err=%v, want no vault discovered", ok, err)
	}
}

func TestResetIsBestEffortOnPerFileFailure(t *testing.T) {
	m := fsx.NewMemory()
	mgr := NewManager(m, "/vaults")
	if _, err := mgr.Init("/proj", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	vault, _, _ := mgr.Discover("/proj")

	// Manually seed a guarded entry whose project counterpart is NOT a
	// symlink: reset must skip it without failing the whole operation.
	if err := m.WriteFileAtomic(vault.Path+"/guarded/orphan.txt", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := mgr.Reset("/proj")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(report.Restored) != 0 {
		t.Fatalf("Restored = %v, want none (orphan is not linked from project)", report.Restored)
	}
}

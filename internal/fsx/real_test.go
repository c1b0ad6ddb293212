package fsx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRealWriteFileAtomicPreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	var r Real

	if err := r.WriteFileAtomic(path, []byte("a = 1\n")); err != nil {
		t.Fatalf("initial write: %v", err)
	}
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := r.WriteFileAtomic(path, []byte("a = 2\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %o, want %o", info.Mode().Perm(), 0o640)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "a = 2\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRealWriteFileAtomicLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")
	var r Real
	if err := r.WriteFileAtomic(path, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "x" {
		t.Fatalf("dir has stray entries: %v", entries)
	}
}

func TestRealReadFileScopedToDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.rsenv")
	if err := os.WriteFile(path, []byte("FOO=bar\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var r Real
	got, err := r.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "FOO=bar\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRealMoveCreatesMissingDestinationParents(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	dstDir := filepath.Join(dir, "dst", "nested")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "a.env"), []byte("A=1\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var r Real
	if err := r.Move(srcDir, dstDir); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(srcDir); !os.IsNotExist(err) {
		t.Fatalf("source still exists: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dstDir, "a.env"))
	if err != nil {
		t.Fatalf("read moved file: %v", err)
	}
	if string(got) != "A=1\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRealCopyTreePreservesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.env")
	if err := os.WriteFile(target, []byte("A=1\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	link := filepath.Join(dir, "link.env")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "copy.env")
	var r Real
	if err := r.CopyTree(link, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	got, err := os.Readlink(dst)
	if err != nil {
		t.Fatalf("readlink copy: %v", err)
	}
	if got != target {
		t.Fatalf("link target = %q, want %q", got, target)
	}
}

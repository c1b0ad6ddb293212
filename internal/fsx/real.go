package fsx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"
)

// Real is the os/io-backed FileSystem implementation used by production
// code. The zero value is ready to use.
type Real struct{}

var _ FileSystem = Real{}

func toInfo(fi os.FileInfo) Info {
	return Info{
		Name:    fi.Name(),
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
		IsLink:  fi.Mode()&os.ModeSymlink != 0,
	}
}

func (Real) Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return toInfo(fi), nil
}

func (Real) Lstat(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Info{}, err
	}
	return toInfo(fi), nil
}

func (r Real) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// ReadFile opens path scoped to its parent directory via os.OpenRoot, the
// same technique the teacher's readFileScoped uses to avoid surprises when
// a caller-supplied path contains unexpected traversal components.
func (Real) ReadFile(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if path == "" {
		return nil, fmt.Errorf("path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()
	return root.ReadFile(base)
}

// WriteFileAtomic writes via a temp file in the same directory followed by
// a rename, preserving the target's existing mode. Mirrors the teacher's
// vault.WriteDotenvFileAtomic.
func (Real) WriteFileAtomic(path string, data []byte) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode() & os.ModePerm
	}
	tmp, err := os.CreateTemp(dir, ".rsenv.tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (Real) Mkdir(path string, perm fs.FileMode) error {
	return os.Mkdir(path, perm)
}

func (Real) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (Real) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		isLink := e.Type()&os.ModeSymlink != 0
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir(), IsLink: isLink})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (Real) Remove(path string) error {
	return os.Remove(path)
}

func (Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (Real) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Move renames oldpath to newpath, falling back to a recursive
// copy-then-delete when the rename fails across filesystem boundaries
// (vaults commonly live on a different mount than the project they serve).
func (r Real) Move(oldpath, newpath string) error {
	if err := os.MkdirAll(filepath.Dir(newpath), 0o700); err != nil {
		return err
	}
	err := os.Rename(oldpath, newpath)
	if err == nil {
		return nil
	}
	if !isCrossDeviceErr(err) {
		return err
	}
	if copyErr := r.CopyTree(oldpath, newpath); copyErr != nil {
		return fmt.Errorf("cross-device move %s -> %s: copy fallback failed: %w", oldpath, newpath, copyErr)
	}
	if rmErr := os.RemoveAll(oldpath); rmErr != nil {
		return fmt.Errorf("cross-device move %s -> %s: copied but failed to remove source: %w", oldpath, newpath, rmErr)
	}
	return nil
}

func isCrossDeviceErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errCrossDevice) {
		return true
	}
	if _, precise := errCrossDevice.(syscall.Errno); precise {
		// A platform errno is available, so any other failure is not cross-device.
		return false
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return true
	}
	return false
}

func (r Real) CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := r.CopyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return copyRegularFile(src, dst, info)
}

func copyRegularFile(src, dst string, info os.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".rsenv.copy-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.ReadFrom(in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

func (Real) Symlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o700); err != nil {
		return err
	}
	return os.Symlink(target, link)
}

func (Real) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

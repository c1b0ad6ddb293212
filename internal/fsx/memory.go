package fsx

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memNode struct {
	isDir   bool
	isLink  bool
	target  string // symlink target, relative or absolute
	data    []byte
	mode    fs.FileMode
	modTime time.Time
}

// Memory is an in-memory FileSystem used by tests that want a hermetic,
// fast substitute for the real filesystem. It supports files, directories,
// and symlinks well enough to exercise the managers in this repo without
// touching disk.
type Memory struct {
	mu    sync.Mutex
	nodes map[string]*memNode
}

var _ FileSystem = (*Memory)(nil)

// NewMemory returns an empty in-memory filesystem rooted at "/".
func NewMemory() *Memory {
	m := &Memory{nodes: map[string]*memNode{}}
	m.nodes["/"] = &memNode{isDir: true, mode: 0o755, modTime: time.Now()}
	return m
}

func clean(path string) string {
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func (m *Memory) lookup(path string) (*memNode, string, bool) {
	path = clean(path)
	n, ok := m.nodes[path]
	return n, path, ok
}

// resolveNoFollow returns the node at path without following a final
// symlink component. Symlinks in parent directories are not followed either:
// the lookup is by the cleaned path alone (sufficient for this module's usage
// patterns: vault/guard/swap never rely on a symlinked parent directory).
func (m *Memory) resolveNoFollow(path string) (*memNode, string, bool) {
	return m.lookup(path)
}

func (m *Memory) Stat(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, cleaned, ok := m.lookup(path)
	if !ok {
		return Info{}, &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
	}
	for n.isLink {
		target := n.target
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(cleaned), target)
		}
		var nextOK bool
		n, cleaned, nextOK = m.lookup(target)
		if !nextOK {
			return Info{}, &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
		}
	}
	return nodeInfo(filepath.Base(cleaned), n), nil
}

func (m *Memory) Lstat(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, cleaned, ok := m.resolveNoFollow(path)
	if !ok {
		return Info{}, &os.PathError{Op: "lstat", Path: path, Err: os.ErrNotExist}
	}
	return nodeInfo(filepath.Base(cleaned), n), nil
}

func nodeInfo(name string, n *memNode) Info {
	return Info{
		Name:    name,
		Size:    int64(len(n.data)),
		Mode:    n.mode,
		ModTime: n.modTime,
		IsDir:   n.isDir,
		IsLink:  n.isLink,
	}
}

func (m *Memory) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, ok := m.resolveNoFollow(path)
	return ok
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, ok := m.lookup(path)
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	for n.isLink {
		target := n.target
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(clean(path)), target)
		}
		var nextOK bool
		n, _, nextOK = m.lookup(target)
		if !nextOK {
			return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
		}
	}
	if n.isDir {
		return nil, fmt.Errorf("read %s: is a directory", path)
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (m *Memory) WriteFileAtomic(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	if err := m.ensureDirLocked(filepath.Dir(p)); err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if existing, ok := m.nodes[p]; ok {
		mode = existing.mode
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.nodes[p] = &memNode{data: cp, mode: mode, modTime: time.Now()}
	return nil
}

func (m *Memory) ensureDirLocked(path string) error {
	p := clean(path)
	if n, ok := m.nodes[p]; ok {
		if !n.isDir {
			return fmt.Errorf("mkdir %s: not a directory", path)
		}
		return nil
	}
	if p != "/" {
		if err := m.ensureDirLocked(filepath.Dir(p)); err != nil {
			return err
		}
	}
	m.nodes[p] = &memNode{isDir: true, mode: 0o755, modTime: time.Now()}
	return nil
}

func (m *Memory) Mkdir(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	if _, ok := m.nodes[p]; ok {
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrExist}
	}
	parent := filepath.Dir(p)
	if pn, ok := m.nodes[parent]; !ok || !pn.isDir {
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrNotExist}
	}
	m.nodes[p] = &memNode{isDir: true, mode: perm, modTime: time.Now()}
	return nil
}

func (m *Memory) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureDirLocked(path)
}

func (m *Memory) ReadDir(path string) ([]DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	n, ok := m.nodes[p]
	if !ok || !n.isDir {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
	}
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var out []DirEntry
	for candidate, node := range m.nodes {
		if candidate == p || !strings.HasPrefix(candidate, prefix) {
			continue
		}
		rest := strings.TrimPrefix(candidate, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		if seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, DirEntry{Name: rest, IsDir: node.isDir, IsLink: node.isLink})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	n, ok := m.nodes[p]
	if !ok {
		return &os.PathError{Op: "remove", Path: path, Err: os.ErrNotExist}
	}
	if n.isDir {
		entries, _ := m.ReadDirLocked(p)
		if len(entries) > 0 {
			return fmt.Errorf("remove %s: directory not empty", path)
		}
	}
	delete(m.nodes, p)
	return nil
}

// ReadDirLocked is ReadDir without re-acquiring the mutex, for internal use.
func (m *Memory) ReadDirLocked(path string) ([]DirEntry, error) {
	p := clean(path)
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	var out []DirEntry
	for candidate, node := range m.nodes {
		if candidate == p || !strings.HasPrefix(candidate, prefix) {
			continue
		}
		rest := strings.TrimPrefix(candidate, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		out = append(out, DirEntry{Name: rest, IsDir: node.isDir, IsLink: node.isLink})
	}
	return out, nil
}

func (m *Memory) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	prefix := p + "/"
	for candidate := range m.nodes {
		if candidate == p || strings.HasPrefix(candidate, prefix) {
			delete(m.nodes, candidate)
		}
	}
	return nil
}

func (m *Memory) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(oldpath, newpath)
}

func (m *Memory) Move(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(oldpath, newpath)
}

func (m *Memory) moveLocked(oldpath, newpath string) error {
	op := clean(oldpath)
	np := clean(newpath)
	if err := m.ensureDirLocked(filepath.Dir(np)); err != nil {
		return err
	}
	prefix := op + "/"
	moved := false
	for candidate, node := range m.nodes {
		if candidate == op {
			m.nodes[np] = node
			delete(m.nodes, candidate)
			moved = true
			continue
		}
		if strings.HasPrefix(candidate, prefix) {
			rest := strings.TrimPrefix(candidate, prefix)
			m.nodes[np+"/"+rest] = node
			delete(m.nodes, candidate)
			moved = true
		}
	}
	if !moved {
		return &os.PathError{Op: "rename", Path: oldpath, Err: os.ErrNotExist}
	}
	return nil
}

func (m *Memory) CopyTree(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp := clean(src)
	dp := clean(dst)
	n, ok := m.nodes[sp]
	if !ok {
		return &os.PathError{Op: "copy", Path: src, Err: os.ErrNotExist}
	}
	if err := m.ensureDirLocked(filepath.Dir(dp)); err != nil {
		return err
	}
	m.copyNodeLocked(sp, dp, n)
	return nil
}

func (m *Memory) copyNodeLocked(sp, dp string, n *memNode) {
	clone := *n
	if !n.isDir {
		clone.data = append([]byte(nil), n.data...)
	}
	m.nodes[dp] = &clone
	if !n.isDir {
		return
	}
	prefix := sp + "/"
	for candidate, child := range m.nodes {
		if candidate == sp || !strings.HasPrefix(candidate, prefix) {
			continue
		}
		rest := strings.TrimPrefix(candidate, prefix)
		childClone := *child
		if !child.isDir {
			childClone.data = append([]byte(nil), child.data...)
		}
		m.nodes[dp+"/"+rest] = &childClone
	}
}

func (m *Memory) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(link)
	if err := m.ensureDirLocked(filepath.Dir(p)); err != nil {
		return err
	}
	m.nodes[p] = &memNode{isLink: true, target: target, modTime: time.Now()}
	return nil
}

func (m *Memory) Readlink(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, ok := m.resolveNoFollow(path)
	if !ok || !n.isLink {
		return "", &os.PathError{Op: "readlink", Path: path, Err: os.ErrInvalid}
	}
	return n.target, nil
}

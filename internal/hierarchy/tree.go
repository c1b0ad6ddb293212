package hierarchy

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aureuma/rsenv/internal/envfile"
	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Node is one file in a tree built by BuildTree.
type Node struct {
	Path     string
	Parent   *Node
	Children []*Node
}

// BuildTree scans every ".env" file directly under dir, refuses if the
// directory is a DAG (any file names two or more parents), and assembles
// the single-parent tree rooted at root via an explicit stack walk that
// detects a cycle by comparing base names along the current path.
func BuildTree(fs fsx.FileSystem, dir, root string) (*Node, error) {
	childrenOf, err := childMap(fs, dir)
	if err != nil {
		return nil, err
	}

	type frame struct {
		node     *Node
		children []string
		idx      int
	}

	rootNode := &Node{Path: root}
	stack := []frame{{node: rootNode, children: sortedCopy(childrenOf[root])}}
	onPath := map[string]bool{filepath.Base(root): true}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.idx >= len(top.children) {
			delete(onPath, filepath.Base(top.node.Path))
			stack = stack[:len(stack)-1]
			continue
		}
		childPath := top.children[top.idx]
		top.idx++

		name := filepath.Base(childPath)
		if onPath[name] {
			return nil, rserr.Cycle("build tree", childPath, fmt.Errorf("%q revisits an ancestor in the current path", name))
		}
		childNode := &Node{Path: childPath, Parent: top.node}
		top.node.Children = append(top.node.Children, childNode)
		onPath[name] = true
		stack = append(stack, frame{node: childNode, children: sortedCopy(childrenOf[childPath])})
	}

	return rootNode, nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// childMap scans dir for *.env files and returns, for each parent path, the
// list of files naming it as their single parent. A file with two or more
// parents makes dir a DAG and is rejected.
func childMap(fs fsx.FileSystem, dir string) (map[string][]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	childrenOf := map[string][]string{}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, ".env") {
			continue
		}
		path := filepath.Join(dir, e.Name)
		data, err := fs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		f, err := envfile.ParseBytes(path, data)
		if err != nil {
			return nil, err
		}
		if len(f.Parents) > 1 {
			return nil, rserr.InvalidFormat("build tree", path, fmt.Errorf("directory is a DAG: %s names %d parents", e.Name, len(f.Parents)))
		}
		if len(f.Parents) == 1 {
			parent := f.Parents[0]
			childrenOf[parent] = append(childrenOf[parent], path)
		}
	}
	return childrenOf, nil
}

// Leaves returns the paths of every node in the tree with no children.
func Leaves(root *Node) []string {
	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) == 0 {
			out = append(out, n.Path)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Branches returns the paths of every node in the tree that has at least
// one child, in depth-first order starting at root.
func Branches(root *Node) []string {
	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) > 0 {
			out = append(out, n.Path)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

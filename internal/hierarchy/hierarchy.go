// Package hierarchy resolves the DAG of .env files reachable from a leaf
// via "# rsenv:" parent directives, and edits those directives in place.
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

// Result is the outcome of Build: the merged variable mapping and the list
// of files visited, in breadth-first traversal order starting at the leaf.
type Result struct {
	Vars  map[string]string
	Files []string
}

// Build performs the breadth-first traversal described for the env-file
// grammar: parents are enqueued in reverse order so that, among siblings,
// the rightmost parent is merged last and therefore wins; within a file,
// children (enqueued earlier) are merged after parents and so override
// them.
func Build(fs fsx.FileSystem, leaf string) (*Result, error) {
	leafCanon := canonical(leaf)
	queue := []pathRef{{path: leaf, canon: leafCanon}}
	visited := map[string]bool{}
	var files []string
	parsed := map[string]*envfile.File{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.canon] {
			continue
		}
		visited[cur.canon] = true

		data, err := fs.ReadFile(cur.path)
		if err != nil {
			return nil, rserr.NotFound("resolve", cur.path, notFoundErr(cur, err))
		}
		f, err := envfile.ParseBytes(cur.path, data)
		if err != nil {
			return nil, rserr.InvalidFormat("parse", cur.path, err)
		}
		files = append(files, cur.path)
		parsed[cur.path] = f

		for i := len(f.Parents) - 1; i >= 0; i-- {
			p := f.Parents[i]
			queue = append(queue, pathRef{path: p, canon: canonical(p), referrer: cur.path})
		}
	}

	vars := map[string]string{}
	for i := len(files) - 1; i >= 0; i-- {
		f := parsed[files[i]]
		for _, b := range f.Bindings {
			vars[b.Key] = b.Value
		}
	}

	return &Result{Vars: vars, Files: files}, nil
}

type pathRef struct {
	path     string
	canon    string
	referrer string
}

func notFoundErr(ref pathRef, cause error) error {
	if ref.referrer == "" {
		return fmt.Errorf("%s: %w", ref.path, cause)
	}
	return fmt.Errorf("%s (referenced from %s): %w", ref.path, ref.referrer, cause)
}

func canonical(path string) string {
	return filepath.Clean(path)
}

// IsDAG reports whether any .env file directly under dir (via fs.ReadDir)
// carries an "# rsenv:" directive naming two or more parents.
func IsDAG(fs fsx.FileSystem, dir string) (bool, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, ".env") {
			continue
		}
		path := filepath.Join(dir, e.Name)
		data, err := fs.ReadFile(path)
		if err != nil {
			continue
		}
		f, err := envfile.ParseBytes(path, data)
		if err != nil {
			continue
		}
		if len(f.Parents) >= 2 {
			return true, nil
		}
	}
	return false, nil
}

// Sorted returns vars's keys in sorted order, for reproducible emission.
func Sorted(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

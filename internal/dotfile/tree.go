package dotfile

import (
	"path/filepath"
	"sort"

	"github.com/aureuma/rsenv/internal/fsx"
)

// RenameTree walks every entry under root and renames each one according to
// rename, processing the deepest directory entries first so an ancestor
// rename never invalidates a path this walk has already computed.
func RenameTree(fs fsx.FileSystem, root string, rename func(component string) string) error {
	entries, err := collectDeepestFirst(fs, root)
	if err != nil {
		return err
	}
	for _, rel := range entries {
		oldPath := filepath.Join(root, rel)
		newPath := filepath.Join(filepath.Dir(oldPath), rename(filepath.Base(rel)))
		if oldPath == newPath {
			continue
		}
		if err := fs.Rename(oldPath, newPath); err != nil {
			return err
		}
	}
	return nil
}

// NeutralizeTree renames every dotfile-named entry under root to its "dot."
// form, deepest first.
func NeutralizeTree(fs fsx.FileSystem, root string) error {
	return RenameTree(fs, root, NeutralizeComponent)
}

// RestoreTreeInPlace renames every "dot."-prefixed entry under root back to
// its dotfile form, deepest first.
func RestoreTreeInPlace(fs fsx.FileSystem, root string) error {
	return RenameTree(fs, root, RestoreComponent)
}

// collectDeepestFirst returns every path under root, relative to root,
// ordered so that deeper paths precede their ancestors.
func collectDeepestFirst(fs fsx.FileSystem, root string) ([]string, error) {
	var all []string
	var walk func(rel string) error
	walk = func(rel string) error {
		dir := filepath.Join(root, rel)
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			childRel := e.Name
			if rel != "" {
				childRel = filepath.Join(rel, e.Name)
			}
			if e.IsDir {
				if err := walk(childRel); err != nil {
					return err
				}
			}
			all = append(all, childRel)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	// Deepest first: sort by component depth descending, stable otherwise.
	sort.SliceStable(all, func(i, j int) bool {
		return depth(all[i]) > depth(all[j])
	})
	return all, nil
}

func depth(rel string) int {
	n := 1
	for _, r := range rel {
		if r == filepath.Separator || r == '/' {
			n++
		}
	}
	return n
}

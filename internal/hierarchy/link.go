package hierarchy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/rserr"
)

const directivePrefix = "# rsenv:"

// Link sets child's single "# rsenv:" directive to name parent, replacing
// an existing directive or prepending a new one. It fails if child already
// carries two or more directive lines.
func Link(fs fsx.FileSystem, parent, child string) error {
	lines, idx, err := loadSingleDirective(fs, child, "link")
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(filepath.Dir(child), parent)
	if err != nil {
		rel = parent
	}
	directive := directivePrefix + " " + filepath.ToSlash(rel)
	if idx >= 0 {
		lines[idx] = directive
	} else {
		lines = append([]string{directive}, lines...)
	}
	return writeLines(fs, child, lines)
}

// Unlink empties child's "# rsenv:" directive, keeping the (now parent-less)
// line in place. If child has no directive at all, one is inserted empty so
// the invariant "exactly one, possibly empty, directive" holds afterward.
func Unlink(fs fsx.FileSystem, child string) error {
	lines, idx, err := loadSingleDirective(fs, child, "unlink")
	if err != nil {
		return err
	}
	if idx >= 0 {
		lines[idx] = directivePrefix
	} else {
		lines = append([]string{directivePrefix}, lines...)
	}
	return writeLines(fs, child, lines)
}

// ChainLink unlinks files[0] and links every subsequent file to its
// predecessor, in order.
func ChainLink(fs fsx.FileSystem, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := Unlink(fs, files[0]); err != nil {
		return err
	}
	for i := 1; i < len(files); i++ {
		if err := Link(fs, files[i-1], files[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadSingleDirective reads child and locates its "# rsenv:" directive
// line, failing if there are two or more.
func loadSingleDirective(fs fsx.FileSystem, child, action string) ([]string, int, error) {
	data, err := fs.ReadFile(child)
	if err != nil {
		return nil, -1, rserr.NotFound(action, child, err)
	}
	lines := splitLines(string(data))
	idx := -1
	count := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), directivePrefix) {
			count++
			idx = i
		}
	}
	if count > 1 {
		return nil, -1, rserr.InvalidFormat(action, child, fmt.Errorf("file has %d rsenv directive lines, want at most 1", count))
	}
	if count == 0 {
		idx = -1
	}
	return lines, idx, nil
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

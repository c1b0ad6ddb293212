// Package gitignore implements the ".gitignore synchronization helper"
// spec §6 describes as a pure data contract: a managed region delimited by
// "# rsenv-managed start"/"# rsenv-managed end" holding one "*.<ext>" line
// per configured encrypt extension plus every configured encrypt filename.
// The marker-region editing technique mirrors internal/envrc's handling of
// the rsenv section in dot.envrc.
package gitignore

import "strings"

const (
	startLine = "# rsenv-managed start"
	endLine   = "# rsenv-managed end"
)

// Managed computes the sorted-stable set of lines the managed region should
// contain for the given encrypt-match configuration.
func Managed(extensions, filenames []string) []string {
	var out []string
	for _, ext := range extensions {
		out = append(out, "*."+ext)
	}
	out = append(out, filenames...)
	return out
}

type bounds struct{ start, end int }

func find(lines []string) (bounds, bool) {
	start := -1
	for i, l := range lines {
		if strings.TrimRight(l, " \t") == startLine {
			start = i
			continue
		}
		if start >= 0 && strings.TrimRight(l, " \t") == endLine {
			return bounds{start: start, end: i}, true
		}
	}
	return bounds{}, false
}

// Sync replaces the managed region's contents with managed, appending the
// region (preceded by a blank line if the file is non-empty) if absent.
func Sync(lines []string, managed []string) []string {
	block := append([]string{startLine}, managed...)
	block = append(block, endLine)

	if b, ok := find(lines); ok {
		out := make([]string, 0, len(lines)-(b.end-b.start+1)+len(block))
		out = append(out, lines[:b.start]...)
		out = append(out, block...)
		out = append(out, lines[b.end+1:]...)
		return out
	}
	out := append([]string{}, lines...)
	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
		out = append(out, "")
	}
	return append(out, block...)
}

// Diff reports which managed entries are missing from the current region
// (to add) and which current entries are no longer wanted (to remove).
func Diff(lines []string, managed []string) (toAdd, toRemove []string) {
	current := Region(lines)
	currentSet := map[string]bool{}
	for _, c := range current {
		currentSet[c] = true
	}
	wantSet := map[string]bool{}
	for _, w := range managed {
		wantSet[w] = true
		if !currentSet[w] {
			toAdd = append(toAdd, w)
		}
	}
	for _, c := range current {
		if !wantSet[c] {
			toRemove = append(toRemove, c)
		}
	}
	return toAdd, toRemove
}

// Region returns the current contents of the managed region, or nil if
// absent.
func Region(lines []string) []string {
	b, ok := find(lines)
	if !ok {
		return nil
	}
	var out []string
	for i := b.start + 1; i < b.end; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		out = append(out, lines[i])
	}
	return out
}

// Clean removes the managed region entirely, a no-op if absent.
func Clean(lines []string) []string {
	b, ok := find(lines)
	if !ok {
		return lines
	}
	out := make([]string, 0, len(lines)-(b.end-b.start+1))
	out = append(out, lines[:b.start]...)
	out = append(out, lines[b.end+1:]...)
	return out
}

// Present reports whether a managed region exists in lines.
func Present(lines []string) bool {
	_, ok := find(lines)
	return ok
}

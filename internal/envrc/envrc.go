// Package envrc edits the marker-delimited rsenv section inside a project's
// .envrc (or a vault's dot.envrc): a header block recording vault state
// followed by a vars sub-region that the hierarchy resolver rewrites
// independently. Every mutation here preserves all other lines verbatim,
// including blank lines.
package envrc

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	startLine = "#------------------------------- rsenv start --------------------------------"
	varsLine  = "#-------------------------------- rsenv vars --------------------------------"
	endLine   = "#-------------------------------- rsenv end ---------------------------------"

	vaultExportPrefix = "export RSENV_VAULT="
	swappedLine       = "export RSENV_SWAPPED=1"
)

// Section is the parsed content of one rsenv header block.
type Section struct {
	Relative  bool
	Version   int
	Sentinel  string
	Timestamp string
	SourceDir string
	Vault     string
	Vars      []string // raw "export K=V" lines, in order
}

// bounds locates one section's anchor line indices within lines.
type bounds struct {
	start int
	vars  int // index of the vars marker, or -1 if missing (legacy)
	end   int
}

// findAll returns the bounds of every rsenv start/end pair found in lines.
// More than one is an error condition callers must check before Delete.
func findAll(lines []string) []bounds {
	var out []bounds
	i := 0
	for i < len(lines) {
		if strings.TrimRight(lines[i], " \t") != startLine {
			i++
			continue
		}
		b := bounds{start: i, vars: -1, end: -1}
		j := i + 1
		for j < len(lines) {
			switch strings.TrimRight(lines[j], " \t") {
			case varsLine:
				b.vars = j
			case endLine:
				b.end = j
			}
			if b.end >= 0 {
				break
			}
			j++
		}
		if b.end < 0 {
			// Unterminated section: stop scanning, nothing usable found.
			break
		}
		out = append(out, b)
		i = b.end + 1
	}
	return out
}

// Parse locates the single rsenv section in lines and decodes it. It
// returns found=false (no error) when no section is present.
func Parse(lines []string) (sec Section, found bool, err error) {
	all := findAll(lines)
	if len(all) == 0 {
		return Section{}, false, nil
	}
	if len(all) > 1 {
		return Section{}, false, fmt.Errorf("envrc: found %d rsenv sections, want at most 1", len(all))
	}
	b := all[0]
	sec, err = decode(lines, b)
	if err != nil {
		return Section{}, false, err
	}
	return sec, true, nil
}

func decode(lines []string, b bounds) (Section, error) {
	sec := Section{Version: 2}
	headerEnd := b.end
	if b.vars >= 0 {
		headerEnd = b.vars
	}
	for i := b.start + 1; i < headerEnd; i++ {
		line := lines[i]
		switch {
		case hasKey(line, "config.relative"):
			sec.Relative = valueOf(line) == "true"
		case hasKey(line, "config.version"):
			v, err := strconv.Atoi(strings.TrimSpace(valueOf(line)))
			if err == nil {
				sec.Version = v
			}
		case hasKey(line, "state.sentinel"):
			sec.Sentinel = unquote(valueOf(line))
		case hasKey(line, "state.timestamp"):
			sec.Timestamp = unquote(valueOf(line))
		case hasKey(line, "state.sourceDir"):
			sec.SourceDir = unquote(valueOf(line))
		case strings.HasPrefix(strings.TrimSpace(line), vaultExportPrefix):
			sec.Vault = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), vaultExportPrefix))
		}
	}
	if b.vars >= 0 {
		for i := b.vars + 1; i < b.end; i++ {
			if strings.TrimSpace(lines[i]) == "" {
				continue
			}
			sec.Vars = append(sec.Vars, lines[i])
		}
	}
	return sec, nil
}

func hasKey(line, key string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	return strings.HasPrefix(strings.TrimSpace(trimmed), key+" =") || strings.HasPrefix(strings.TrimSpace(trimmed), key+"=")
}

func valueOf(line string) string {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// render produces the full line block for a section, including markers.
func render(sec Section) []string {
	out := []string{
		startLine,
		fmt.Sprintf("# config.relative = %t", sec.Relative),
		fmt.Sprintf("# config.version = %d", valueOrDefault(sec.Version, 2)),
		fmt.Sprintf("# state.sentinel = '%s'", sec.Sentinel),
		fmt.Sprintf("# state.timestamp = '%s'", sec.Timestamp),
		fmt.Sprintf("# state.sourceDir = '%s'", sec.SourceDir),
		vaultExportPrefix + sec.Vault,
		varsLine,
	}
	out = append(out, sec.Vars...)
	out = append(out, endLine)
	return out
}

func valueOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Upsert replaces the single existing section in lines with sec, or
// appends sec (with a preceding blank line when lines is non-empty and its
// last line is non-blank) if none exists.
func Upsert(lines []string, sec Section) ([]string, error) {
	all := findAll(lines)
	if len(all) > 1 {
		return nil, fmt.Errorf("envrc: found %d rsenv sections, want at most 1", len(all))
	}
	block := render(sec)
	if len(all) == 1 {
		b := all[0]
		out := make([]string, 0, len(lines)-(b.end-b.start+1)+len(block))
		out = append(out, lines[:b.start]...)
		out = append(out, block...)
		out = append(out, lines[b.end+1:]...)
		return out, nil
	}
	out := append([]string{}, lines...)
	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
		out = append(out, "")
	}
	out = append(out, block...)
	return out, nil
}

// SetVars rewrites only the vars sub-region of the single existing section,
// auto-migrating a legacy section that predates the vars marker by
// inserting one. Returns an error if no section or more than one exists.
func SetVars(lines []string, vars []string) ([]string, error) {
	all := findAll(lines)
	if len(all) == 0 {
		return nil, fmt.Errorf("envrc: no rsenv section present")
	}
	if len(all) > 1 {
		return nil, fmt.Errorf("envrc: found %d rsenv sections, want at most 1", len(all))
	}
	b := all[0]
	varsStart := b.vars
	if varsStart < 0 {
		// Legacy section: insert the vars marker right before end.
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:b.end]...)
		out = append(out, varsLine)
		out = append(out, lines[b.end:]...)
		lines = out
		varsStart = b.end
		b.end++
	}
	out := make([]string, 0, len(lines))
	out = append(out, lines[:varsStart+1]...)
	out = append(out, vars...)
	out = append(out, lines[b.end:]...)
	return out, nil
}

// Delete removes the single rsenv section from lines. It is an error for
// more than one section to be present; zero sections is a no-op.
func Delete(lines []string) ([]string, error) {
	all := findAll(lines)
	if len(all) > 1 {
		return nil, fmt.Errorf("envrc: found %d rsenv sections, want at most 1 for delete", len(all))
	}
	if len(all) == 0 {
		return lines, nil
	}
	b := all[0]
	out := make([]string, 0, len(lines)-(b.end-b.start+1))
	out = append(out, lines[:b.start]...)
	out = append(out, lines[b.end+1:]...)
	return out, nil
}

// SetSwapped toggles the standalone "export RSENV_SWAPPED=1" line that
// lives outside the rsenv section. Setting swapped=false removes the line
// if present; swapped=true appends it if absent.
func SetSwapped(lines []string, swapped bool) []string {
	idx := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == swappedLine {
			idx = i
			break
		}
	}
	if swapped {
		if idx >= 0 {
			return lines
		}
		out := append([]string{}, lines...)
		return append(out, swappedLine)
	}
	if idx < 0 {
		return lines
	}
	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:idx]...)
	out = append(out, lines[idx+1:]...)
	return out
}

// IsSwapped reports whether the standalone RSENV_SWAPPED marker is present.
func IsSwapped(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == swappedLine {
			return true
		}
	}
	return false
}

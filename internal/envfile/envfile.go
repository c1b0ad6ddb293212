// Package envfile implements the grammar described for .env files: parent
// directives, export bindings, and the value-quoting/comment-stripping
// rules shared by every consumer of a hierarchy file.
package envfile

import (
	"os"
	"path/filepath"
	"strings"
)

// Binding is one "export KEY=VALUE" line as parsed, in source order.
type Binding struct {
	Key   string
	Value string
}

// File is a single parsed .env file: its parent directives (already
// shell-expanded and resolved to absolute paths) and its bindings.
type File struct {
	Path     string
	Parents  []string
	Bindings []Binding
}

// Lookup returns the last binding for key, mirroring within-file
// last-write-wins semantics.
func (f *File) Lookup(key string) (string, bool) {
	val, ok := "", false
	for _, b := range f.Bindings {
		if b.Key == key {
			val, ok = b.Value, true
		}
	}
	return val, ok
}

// Parse reads and parses the file at path. Parent specs are resolved
// relative to path's directory and have $VAR / ${VAR} / leading ~
// expanded against the process environment and home directory.
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(path, data)
}

// ParseBytes parses already-read content as if it lived at path, so callers
// backed by an in-memory or capability filesystem can reuse the grammar.
func ParseBytes(path string, data []byte) (*File, error) {
	f := &File{Path: path}
	dir := filepath.Dir(path)
	lines := splitLines(string(data))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			// blank line, ignored
		case strings.HasPrefix(trimmed, "# rsenv:"):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "# rsenv:"))
			for _, spec := range strings.Fields(rest) {
				f.Parents = append(f.Parents, resolveParentSpec(spec, dir))
			}
		case strings.HasPrefix(trimmed, "#"):
			// comment, ignored
		case strings.HasPrefix(trimmed, "export "):
			rest := strings.TrimPrefix(trimmed, "export ")
			key, value, ok := splitAssignment(rest)
			if ok {
				f.Bindings = append(f.Bindings, Binding{Key: key, Value: value})
			}
		default:
			// anything else is ignored; only export bindings are recognized
		}
	}
	return f, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

func resolveParentSpec(spec, dir string) string {
	expanded := expandShell(spec)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Clean(filepath.Join(dir, expanded))
}

func expandShell(spec string) string {
	if strings.HasPrefix(spec, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			if spec == "~" {
				spec = home
			} else if strings.HasPrefix(spec, "~/") {
				spec = filepath.Join(home, spec[2:])
			}
		}
	}
	return os.Expand(spec, func(name string) string {
		return os.Getenv(name)
	})
}

// splitAssignment splits "KEY=VALUE" and applies the value-handling rules:
// a trailing "# comment" outside quotes is stripped, then one outer
// matching pair of quotes is removed.
func splitAssignment(rest string) (key, value string, ok bool) {
	idx := strings.IndexByte(rest, '=')
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(rest[:idx])
	if key == "" {
		return "", "", false
	}
	value = stripTrailingComment(rest[idx+1:])
	value = unquoteOuter(value)
	return key, value, true
}

// stripTrailingComment removes a "# ..." suffix that begins outside of any
// quoted region. Whitespace immediately preceding the "#" is also dropped.
func stripTrailingComment(s string) string {
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimRight(s[:i], " \t")
			}
		}
	}
	return s
}

// unquoteOuter strips a single outer matching pair of single or double
// quotes, if present. Inner quote characters are left untouched.
func unquoteOuter(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '\'' || first == '"') && first == last {
			return trimmed[1 : len(trimmed)-1]
		}
	}
	return trimmed
}

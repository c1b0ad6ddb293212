package render

import "testing"

func TestTableAlignsColumns(t *testing.T) {
	lines := Table(
		[]string{"FILE", "STATE"},
		[][]string{{"config.override.yml", "in"}, {"a.env", "out"}},
		2,
	)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	// The widest first-column cell ("config.override.yml", 19 chars) sets
	// the column width; every line's second column must start right after
	// it plus the 2-space gutter.
	const col1Width = len("config.override.yml")
	for _, l := range lines {
		if len(l) < col1Width+2 {
			t.Fatalf("line %q shorter than expected column offset", l)
		}
		if gutter := l[col1Width : col1Width+2]; gutter != "  " {
			t.Fatalf("line %q: gutter at offset %d = %q, want two spaces", l, col1Width, gutter)
		}
	}
}

func TestTableEmptyHeadersReturnsNil(t *testing.T) {
	if got := Table(nil, nil, 1); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

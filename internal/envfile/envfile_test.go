package envfile

import (
	"testing"
)

func TestParseBytesBasic(t *testing.T) {
	content := "# rsenv: base.env\nexport A=1\nexport B=2\n"
	f, err := ParseBytes("/proj/leaf.env", []byte(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Parents) != 1 || f.Parents[0] != "/proj/base.env" {
		t.Fatalf("parents = %v", f.Parents)
	}
	if v, ok := f.Lookup("A"); !ok || v != "1" {
		t.Fatalf("A = %q, %v", v, ok)
	}
	if v, ok := f.Lookup("B"); !ok || v != "2" {
		t.Fatalf("B = %q, %v", v, ok)
	}
}

func TestParseBytesMultipleParents(t *testing.T) {
	f, err := ParseBytes("/proj/leaf.env", []byte("# rsenv: a.env b.env\nexport X=A\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Parents) != 2 {
		t.Fatalf("parents = %v", f.Parents)
	}
	if f.Parents[0] != "/proj/a.env" || f.Parents[1] != "/proj/b.env" {
		t.Fatalf("parents = %v", f.Parents)
	}
}

func TestParseBytesIgnoresCommentsAndOther(t *testing.T) {
	content := "# just a comment\nsome garbage line\nexport KEPT=1\n"
	f, err := ParseBytes("/proj/x.env", []byte(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Bindings) != 1 {
		t.Fatalf("bindings = %v", f.Bindings)
	}
}

func TestValueHandlingBoundaryCases(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"hash in single quotes retained", "export A='a#b'", "a#b"},
		{"trailing comment stripped", "export A=v  # c", "v"},
		{"inner quote retained", `export A="x"y"`, `x"y`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseBytes("/proj/x.env", []byte(tc.line+"\n"))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, ok := f.Lookup("A")
			if !ok {
				t.Fatalf("A not found")
			}
			if got != tc.want {
				t.Fatalf("value = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLookupIsLastWriteWinsWithinFile(t *testing.T) {
	f, err := ParseBytes("/proj/x.env", []byte("export A=1\nexport A=2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, ok := f.Lookup("A")
	if !ok || got != "2" {
		t.Fatalf("A = %q, %v", got, ok)
	}
}

func TestResolveParentSpecExpandsHomeAndEnv(t *testing.T) {
	t.Setenv("RSENV_TEST_DIR", "other")
	f, err := ParseBytes("/proj/leaf.env", []byte("# rsenv: $RSENV_TEST_DIR/base.env\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Parents) != 1 || f.Parents[0] != "/proj/other/base.env" {
		t.Fatalf("parents = %v", f.Parents)
	}
}

package hierarchy

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aureuma/rsenv/internal/fsx"
)

func seed(t *testing.T, m *fsx.Memory, path, content string) {
	t.Helper()
	if err := m.WriteFileAtomic(path, []byte(content)); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func TestBuildMergesWithOverride(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/base.env", "export A=1\nexport B=2\n")
	seed(t, m, "/proj/leaf.env", "# rsenv: base.env\nexport B=3\nexport C=4\n")

	res, err := Build(m, "/proj/leaf.env")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := map[string]string{"A": "1", "B": "3", "C": "4"}
	if diff := cmp.Diff(want, res.Vars); diff != "" {
		t.Fatalf("Vars mismatch (-want +got):\n%s", diff)
	}
	wantFiles := []string{"/proj/leaf.env", "/proj/base.env"}
	if diff := cmp.Diff(wantFiles, res.Files); diff != "" {
		t.Fatalf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDAGRightmostWins(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/a.env", "export X=A\n")
	seed(t, m, "/proj/b.env", "export X=B\n")
	seed(t, m, "/proj/leaf.env", "# rsenv: a.env b.env\n")

	res, err := Build(m, "/proj/leaf.env")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Vars["X"] != "B" {
		t.Fatalf("X = %q, want B", res.Vars["X"])
	}
}

func TestBuildMissingParentIsNotFound(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/leaf.env", "# rsenv: missing.env\n")
	if _, err := Build(m, "/proj/leaf.env"); err == nil {
		t.Fatalf("expected error for missing parent")
	}
}

func TestBuildCycleTerminatesViaVisitedSet(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/a.env", "# rsenv: b.env\nexport X=A\n")
	seed(t, m, "/proj/b.env", "# rsenv: a.env\nexport X=B\n")

	res, err := Build(m, "/proj/a.env")
	if err != nil {
		t.Fatalf("Build should not error on a cycle, got: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("Files = %v, want 2 (visited set should stop the cycle)", res.Files)
	}
}

func TestIsDAGDetectsMultipleParents(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/a.env", "export X=A\n")
	seed(t, m, "/proj/b.env", "export X=B\n")
	seed(t, m, "/proj/leaf.env", "# rsenv: a.env b.env\n")

	isDAG, err := IsDAG(m, "/proj")
	if err != nil {
		t.Fatalf("IsDAG: %v", err)
	}
	if !isDAG {
		t.Fatalf("expected DAG")
	}
}

func TestLinkThenUnlinkEmptiesDirective(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/parent.env", "export A=1\n")
	seed(t, m, "/proj/child.env", "export B=2\n")

	if err := Link(m, "/proj/parent.env", "/proj/child.env"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	data, err := m.ReadFile("/proj/child.env")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "# rsenv: parent.env\nexport B=2\n" {
		t.Fatalf("content = %q", data)
	}

	if err := Unlink(m, "/proj/child.env"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	data, err = m.ReadFile("/proj/child.env")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "# rsenv:\nexport B=2\n" {
		t.Fatalf("content after unlink = %q", data)
	}
}

func TestChainLinkBuildsSequence(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/none.env", "")
	seed(t, m, "/proj/local.env", "")
	seed(t, m, "/proj/test.env", "")

	files := []string{"/proj/none.env", "/proj/local.env", "/proj/test.env"}
	if err := ChainLink(m, files); err != nil {
		t.Fatalf("ChainLink: %v", err)
	}

	none, _ := m.ReadFile("/proj/none.env")
	if string(none) != "# rsenv:\n" {
		t.Fatalf("none.env = %q", none)
	}
	local, _ := m.ReadFile("/proj/local.env")
	if string(local) != "# rsenv: none.env\n" {
		t.Fatalf("local.env = %q", local)
	}
	test, _ := m.ReadFile("/proj/test.env")
	if string(test) != "# rsenv: local.env\n" {
		t.Fatalf("test.env = %q", test)
	}
}

func TestLinkRejectsMultipleExistingDirectives(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/parent.env", "")
	seed(t, m, "/proj/child.env", "# rsenv: a.env\n# rsenv: b.env\n")

	if err := Link(m, "/proj/parent.env", "/proj/child.env"); err == nil {
		t.Fatalf("expected error for multiple directives")
	}
}

func TestBuildTreeAndLeavesAndBranches(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/envs/none.env", "")
	seed(t, m, "/proj/envs/local.env", "# rsenv: none.env\n")
	seed(t, m, "/proj/envs/test.env", "# rsenv: none.env\n")
	seed(t, m, "/proj/envs/int.env", "# rsenv: local.env\n")

	root, err := BuildTree(m, "/proj/envs", "/proj/envs/none.env")
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	leaves := Leaves(root)
	if len(leaves) != 2 {
		t.Fatalf("leaves = %v", leaves)
	}
	branches := Branches(root)
	if len(branches) != 2 {
		t.Fatalf("branches = %v", branches)
	}
}

func TestBuildTreeDetectsCycleByName(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/envs/a.env", "# rsenv: b.env\n")
	seed(t, m, "/proj/envs/b.env", "# rsenv: a.env\n")

	if _, err := BuildTree(m, "/proj/envs", "/proj/envs/a.env"); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestBuildTreeRefusesDAG(t *testing.T) {
	m := fsx.NewMemory()
	seed(t, m, "/proj/envs/a.env", "")
	seed(t, m, "/proj/envs/b.env", "")
	seed(t, m, "/proj/envs/leaf.env", "# rsenv: a.env b.env\n")

	if _, err := BuildTree(m, "/proj/envs", "/proj/envs/a.env"); err == nil {
		t.Fatalf("expected DAG rejection")
	}
}

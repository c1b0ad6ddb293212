package gitignore

import (
	"reflect"
	"testing"
)

func TestSyncAppendsRegionWhenAbsent(t *testing.T) {
	lines := []string{"node_modules/"}
	managed := Managed([]string{"env"}, []string{"secrets.yml"})
	out := Sync(lines, managed)

	want := []string{
		"node_modules/",
		"",
		startLine,
		"*.env",
		"secrets.yml",
		endLine,
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("Sync = %v, want %v", out, want)
	}
}

func TestSyncReplacesExistingRegionInPlace(t *testing.T) {
	lines := []string{
		"a.log",
		startLine,
		"*.old",
		endLine,
		"b.log",
	}
	out := Sync(lines, Managed([]string{"env"}, nil))
	want := []string{"a.log", startLine, "*.env", endLine, "b.log"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("Sync = %v, want %v", out, want)
	}
}

func TestDiffComputesSetDifference(t *testing.T) {
	lines := Sync(nil, Managed([]string{"env", "yml"}, nil))
	toAdd, toRemove := Diff(lines, Managed([]string{"env", "json"}, nil))
	if !reflect.DeepEqual(toAdd, []string{"*.json"}) {
		t.Fatalf("toAdd = %v", toAdd)
	}
	if !reflect.DeepEqual(toRemove, []string{"*.yml"}) {
		t.Fatalf("toRemove = %v", toRemove)
	}
}

func TestCleanRemovesRegion(t *testing.T) {
	lines := Sync([]string{"keep.txt"}, Managed([]string{"env"}, nil))
	out := Clean(lines)
	// Sync inserted a blank separator before the region; Clean removes only
	// the marker-delimited region itself.
	want := []string{"keep.txt", ""}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("Clean = %v, want %v", out, want)
	}
	if Present(out) {
		t.Fatalf("Present should be false after Clean")
	}
}

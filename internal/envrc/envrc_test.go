package envrc

import "testing"

func section() Section {
	return Section{
		Relative:  true,
		Version:   2,
		Sentinel:  "myproj-deadbeef",
		Timestamp: "2026-01-01T00:00:00Z",
		SourceDir: "$HOME/work/myproj",
		Vault:     "$HOME/.rsenv/vaults/myproj-deadbeef",
		Vars:      []string{"export A=1", "export B=2"},
	}
}

func TestUpsertThenParseRoundTrips(t *testing.T) {
	lines := []string{"# a user comment", ""}
	out, err := Upsert(lines, section())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if out[0] != "# a user comment" {
		t.Fatalf("preceding lines not preserved: %v", out)
	}
	got, found, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !found {
		t.Fatalf("section not found")
	}
	if got.Sentinel != "myproj-deadbeef" || !got.Relative || got.Vault != "$HOME/.rsenv/vaults/myproj-deadbeef" {
		t.Fatalf("got = %+v", got)
	}
	if len(got.Vars) != 2 || got.Vars[0] != "export A=1" {
		t.Fatalf("vars = %v", got.Vars)
	}
}

func TestUpsertReplacesExistingSection(t *testing.T) {
	lines, err := Upsert(nil, section())
	if err != nil {
		t.Fatalf("Upsert 1: %v", err)
	}
	updated := section()
	updated.Sentinel = "myproj-cafef00d"
	lines, err = Upsert(lines, updated)
	if err != nil {
		t.Fatalf("Upsert 2: %v", err)
	}
	got, found, err := Parse(lines)
	if err != nil || !found {
		t.Fatalf("Parse: found=%v err=%v", found, err)
	}
	if got.Sentinel != "myproj-cafef00d" {
		t.Fatalf("sentinel = %q", got.Sentinel)
	}
}

func TestSetVarsRewritesOnlyVarsSubRegion(t *testing.T) {
	lines, err := Upsert([]string{"# keep me"}, section())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	lines, err = SetVars(lines, []string{"export C=3"})
	if err != nil {
		t.Fatalf("SetVars: %v", err)
	}
	got, found, err := Parse(lines)
	if err != nil || !found {
		t.Fatalf("Parse: found=%v err=%v", found, err)
	}
	if len(got.Vars) != 1 || got.Vars[0] != "export C=3" {
		t.Fatalf("vars = %v", got.Vars)
	}
	if got.Sentinel != "myproj-deadbeef" {
		t.Fatalf("header was disturbed: %+v", got)
	}
	if lines[0] != "# keep me" {
		t.Fatalf("preceding line lost: %v", lines)
	}
}

func TestSetVarsMigratesLegacySectionWithoutVarsMarker(t *testing.T) {
	legacy := []string{
		startLine,
		"# config.relative = true",
		"# config.version = 2",
		"# state.sentinel = 'x'",
		"# state.timestamp = 't'",
		"# state.sourceDir = 'd'",
		vaultExportPrefix + "v",
		endLine,
	}
	out, err := SetVars(legacy, []string{"export A=1"})
	if err != nil {
		t.Fatalf("SetVars: %v", err)
	}
	got, found, err := Parse(out)
	if err != nil || !found {
		t.Fatalf("Parse: found=%v err=%v", found, err)
	}
	if len(got.Vars) != 1 || got.Vars[0] != "export A=1" {
		t.Fatalf("vars = %v", got.Vars)
	}
}

func TestDeleteRemovesWholeSection(t *testing.T) {
	lines, err := Upsert([]string{"before", "", "after"}, section())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	out, err := Delete(lines)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Upsert appended a blank separator after "after"; Delete removes only the
	// marker-delimited block, so that separator line stays.
	if len(out) != 4 || out[0] != "before" || out[2] != "after" || out[3] != "" {
		t.Fatalf("out = %v", out)
	}
}

func TestDeleteMultipleSectionsIsError(t *testing.T) {
	block := render(section())
	lines := append(append([]string{}, block...), block...)
	if _, err := Delete(lines); err == nil {
		t.Fatalf("expected error for multiple sections")
	}
}

func TestSetSwappedTogglesStandaloneLine(t *testing.T) {
	lines := []string{"export FOO=1"}
	lines = SetSwapped(lines, true)
	if !IsSwapped(lines) {
		t.Fatalf("expected swapped after set")
	}
	lines = SetSwapped(lines, false)
	if IsSwapped(lines) {
		t.Fatalf("expected not swapped after unset")
	}
	if len(lines) != 1 || lines[0] != "export FOO=1" {
		t.Fatalf("other lines disturbed: %v", lines)
	}
}

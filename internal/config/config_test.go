package config

import "testing"

func TestLoadDefaultsOnly(t *testing.T) {
	r, err := Load(nil, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Config.Editor != "vi" {
		t.Fatalf("Editor = %q, want vi", r.Config.Editor)
	}
	if r.Provenance["editor"] != SourceDefault {
		t.Fatalf("editor provenance = %v, want default", r.Provenance["editor"])
	}
}

func TestLoadLayersOverrideInOrder(t *testing.T) {
	global := []byte(`editor = "nano"` + "\n")
	local := []byte("[sops]\nage_key = \"age1local\"\n")
	r, err := Load(global, local, []string{"RSENV_SOPS__GPG_KEY=ABCD1234"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Config.Editor != "nano" {
		t.Fatalf("Editor = %q, want nano (global layer)", r.Config.Editor)
	}
	if r.Config.Sops.AgeKey != "age1local" {
		t.Fatalf("AgeKey = %q, want age1local (local layer)", r.Config.Sops.AgeKey)
	}
	if r.Config.Sops.GPGKey != "ABCD1234" {
		t.Fatalf("GPGKey = %q, want env override", r.Config.Sops.GPGKey)
	}
	if r.Provenance["editor"] != SourceGlobal {
		t.Fatalf("editor provenance = %v, want global", r.Provenance["editor"])
	}
	if r.Provenance["sops.age_key"] != SourceLocal {
		t.Fatalf("sops.age_key provenance = %v, want local", r.Provenance["sops.age_key"])
	}
	if r.Provenance["sops.gpg_key"] != SourceEnv {
		t.Fatalf("sops.gpg_key provenance = %v, want env", r.Provenance["sops.gpg_key"])
	}
	// vault_base_dir untouched by any layer: stays at default.
	if r.Config.VaultBaseDir != Default().VaultBaseDir {
		t.Fatalf("VaultBaseDir = %q, want default", r.Config.VaultBaseDir)
	}
}

func TestEnvIgnoresUnprefixedVars(t *testing.T) {
	r, err := Load(nil, nil, []string{"EDITOR=emacs", "PATH=/bin"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Config.Editor != Default().Editor {
		t.Fatalf("unprefixed EDITOR leaked into config: %q", r.Config.Editor)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Sops.AgeKey = "age1xyz"
	data, err := Encode(cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r, err := Load(data, nil, nil)
	if err != nil {
		t.Fatalf("Load(encoded): %v", err)
	}
	if r.Config.Sops.AgeKey != "age1xyz" {
		t.Fatalf("round trip lost AgeKey: %+v", r.Config)
	}
}

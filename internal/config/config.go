// Package config implements the four-layer configuration contract from
// spec §6: compiled defaults, a global file, a local vault-relative file,
// then RSENV_-prefixed environment variables, each layer overriding the
// previous one field by field. Every layer is a TOML document decoded with
// go-toml/v2, exactly as the teacher's Settings type.
package config

import (
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/aureuma/rsenv/internal/rserr"
)

// Sops holds the encryption-manager-facing keys and file-match patterns.
type Sops struct {
	GPGKey            string   `toml:"gpg_key,omitempty"`
	AgeKey            string   `toml:"age_key,omitempty"`
	FileExtensionsEnc []string `toml:"file_extensions_enc,omitempty"`
	FileNamesEnc      []string `toml:"file_names_enc,omitempty"`
	FileExtensionsDec []string `toml:"file_extensions_dec,omitempty"`
	FileNamesDec      []string `toml:"file_names_dec,omitempty"`
}

// Config is the fully merged, effective configuration.
type Config struct {
	VaultBaseDir string `toml:"vault_base_dir,omitempty"`
	Editor       string `toml:"editor,omitempty"`
	Sops         Sops   `toml:"sops,omitempty"`
}

// Source names one of the four layers, in precedence order (lowest first).
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
)

// Resolved pairs the effective Config with the Source that last set each
// key, mirroring the teacher's debug-provenance helper so an eventual
// "config show" can explain where a value came from without this package
// knowing anything about a CLI.
type Resolved struct {
	Config     Config
	Provenance map[string]Source
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		VaultBaseDir: "~/.rsenv/vaults",
		Editor:       "vi",
		Sops: Sops{
			FileExtensionsEnc: []string{"env"},
			FileNamesEnc:      nil,
			FileExtensionsDec: []string{"env"},
			FileNamesDec:      nil,
		},
	}
}

// Load merges the four layers in precedence order: Default() < globalData
// (the platform user-config file, may be nil if absent) < localData (the
// vault-local .rsenv.toml, may be nil if absent) < environ (os.Environ()
// format "K=V", filtered to the RSENV_ prefix).
func Load(globalData, localData []byte, environ []string) (Resolved, error) {
	cfg := Default()
	prov := map[string]Source{}
	markAll(prov, cfg, SourceDefault)

	if len(globalData) > 0 {
		if err := decodeLayer(globalData, &cfg, prov, SourceGlobal); err != nil {
			return Resolved{}, rserr.Config("config-load", "global", err)
		}
	}
	if len(localData) > 0 {
		if err := decodeLayer(localData, &cfg, prov, SourceLocal); err != nil {
			return Resolved{}, rserr.Config("config-load", "local", err)
		}
	}
	applyEnv(&cfg, prov, environ)

	return Resolved{Config: cfg, Provenance: prov}, nil
}

// decodeLayer decodes data into a scratch Config and merges every
// non-zero field onto cfg, recording src as the provenance for each field
// the layer actually set.
func decodeLayer(data []byte, cfg *Config, prov map[string]Source, src Source) error {
	var layer Config
	if err := toml.Unmarshal(data, &layer); err != nil {
		return err
	}
	mergeString(&cfg.VaultBaseDir, layer.VaultBaseDir, "vault_base_dir", prov, src)
	mergeString(&cfg.Editor, layer.Editor, "editor", prov, src)
	mergeString(&cfg.Sops.GPGKey, layer.Sops.GPGKey, "sops.gpg_key", prov, src)
	mergeString(&cfg.Sops.AgeKey, layer.Sops.AgeKey, "sops.age_key", prov, src)
	mergeSlice(&cfg.Sops.FileExtensionsEnc, layer.Sops.FileExtensionsEnc, "sops.file_extensions_enc", prov, src)
	mergeSlice(&cfg.Sops.FileNamesEnc, layer.Sops.FileNamesEnc, "sops.file_names_enc", prov, src)
	mergeSlice(&cfg.Sops.FileExtensionsDec, layer.Sops.FileExtensionsDec, "sops.file_extensions_dec", prov, src)
	mergeSlice(&cfg.Sops.FileNamesDec, layer.Sops.FileNamesDec, "sops.file_names_dec", prov, src)
	return nil
}

func mergeString(dst *string, value, key string, prov map[string]Source, src Source) {
	if value == "" {
		return
	}
	*dst = value
	prov[key] = src
}

func mergeSlice(dst *[]string, value []string, key string, prov map[string]Source, src Source) {
	if len(value) == 0 {
		return
	}
	*dst = value
	prov[key] = src
}

func markAll(prov map[string]Source, cfg Config, src Source) {
	for _, key := range []string{
		"vault_base_dir", "editor",
		"sops.gpg_key", "sops.age_key",
		"sops.file_extensions_enc", "sops.file_names_enc",
		"sops.file_extensions_dec", "sops.file_names_dec",
	} {
		prov[key] = src
	}
}

// applyEnv applies RSENV_-prefixed environment variables onto cfg, using
// "__" as the nested-field separator (e.g. RSENV_SOPS__AGE_KEY).
func applyEnv(cfg *Config, prov map[string]Source, environ []string) {
	const prefix = "RSENV_"
	for _, kv := range environ {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(kv[:eq], prefix))
		value := kv[eq+1:]
		path := strings.Split(key, "__")
		applyEnvField(cfg, prov, path, value)
	}
}

func applyEnvField(cfg *Config, prov map[string]Source, path []string, value string) {
	switch strings.Join(path, ".") {
	case "vault_base_dir":
		cfg.VaultBaseDir = value
		prov["vault_base_dir"] = SourceEnv
	case "editor":
		cfg.Editor = value
		prov["editor"] = SourceEnv
	case "sops.gpg_key":
		cfg.Sops.GPGKey = value
		prov["sops.gpg_key"] = SourceEnv
	case "sops.age_key":
		cfg.Sops.AgeKey = value
		prov["sops.age_key"] = SourceEnv
	case "sops.file_extensions_enc":
		cfg.Sops.FileExtensionsEnc = splitCSV(value)
		prov["sops.file_extensions_enc"] = SourceEnv
	case "sops.file_names_enc":
		cfg.Sops.FileNamesEnc = splitCSV(value)
		prov["sops.file_names_enc"] = SourceEnv
	case "sops.file_extensions_dec":
		cfg.Sops.FileExtensionsDec = splitCSV(value)
		prov["sops.file_extensions_dec"] = SourceEnv
	case "sops.file_names_dec":
		cfg.Sops.FileNamesDec = splitCSV(value)
		prov["sops.file_names_dec"] = SourceEnv
	}
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Encode renders cfg back to TOML, for writing a fresh local/global file.
func Encode(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, rserr.Config("config-encode", "", err)
	}
	return data, nil
}

// Keys returns every recognized configuration key, sorted, for "config
// show"-style output.
func Keys() []string {
	keys := []string{
		"vault_base_dir", "editor",
		"sops.gpg_key", "sops.age_key",
		"sops.file_extensions_enc", "sops.file_names_enc",
		"sops.file_extensions_dec", "sops.file_names_dec",
	}
	sort.Strings(keys)
	return keys
}

// LoadFromEnviron is a convenience wrapper reading live os.Environ().
func LoadFromEnviron(globalData, localData []byte) (Resolved, error) {
	return Load(globalData, localData, os.Environ())
}

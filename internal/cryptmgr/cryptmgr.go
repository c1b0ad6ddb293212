// Package cryptmgr implements the content-addressed encryption manager
// (spec §4.4): it shells out to an external SOPS-family binary to keep
// plaintext files in sync with encrypted siblings whose filenames embed a
// short content hash, so staleness can be detected without decrypting.
package cryptmgr

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/aureuma/rsenv/internal/crypt"
	"github.com/aureuma/rsenv/internal/execx"
	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/hashcodec"
	"github.com/aureuma/rsenv/internal/rserr"
)

// Status classifies one plaintext file relative to its encrypted siblings.
type Status string

const (
	StatusPending  Status = "pending"
	StatusStale    Status = "stale"
	StatusCurrent  Status = "current"
	StatusOrphaned Status = "orphaned"
)

// PlaintextStatus is the classification of one plaintext candidate.
type PlaintextStatus struct {
	Path          string
	Status        Status
	Hash          string // current hash of Path's content
	OldHash       string // set only for Status == StatusStale: the stale sibling's embedded hash
	StaleSiblings []string
}

// Report is the result of Status: every plaintext candidate under a
// directory, classified, plus any encrypted file no plaintext claims.
type Report struct {
	Plaintexts []PlaintextStatus
	Orphans    []string
}

// NeedsEncryption reports whether any plaintext is pending or stale, the
// predicate a pre-commit hook uses to decide whether to block a commit.
func (r Report) NeedsEncryption() bool {
	for _, p := range r.Plaintexts {
		if p.Status == StatusPending || p.Status == StatusStale {
			return true
		}
	}
	return false
}

// Config is the subset of the layered configuration (spec §6) this manager
// needs: which key to hand the encryption binary, and which plaintext files
// to consider for encrypt/decrypt.
type Config struct {
	GPGKey            string
	AgeKey            string
	FileExtensionsEnc []string
	FileNamesEnc      []string
}

// Manager drives status/encrypt/decrypt/clean/migrate against a directory
// tree, shelling out to an external encryption binary via execx.
type Manager struct {
	FS      fsx.FileSystem
	Cmd     execx.CommandRunner
	Config  Config
	Binary  string // external binary name, defaults to "sops"
	Workers int    // worker pool size for batch ops; <=0 means runtime.NumCPU()
}

func (m *Manager) binary() string {
	if m.Binary != "" {
		return m.Binary
	}
	return "sops"
}

func (m *Manager) workers() int {
	if m.Workers > 0 {
		return m.Workers
	}
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// collect recursively walks dir and returns every plaintext candidate: a
// file whose basename is in filenames, or whose extension (no leading dot,
// case-sensitive) is in extensions.
func collect(fs fsx.FileSystem, dir string, extensions, filenames []string) ([]string, error) {
	extSet := map[string]struct{}{}
	for _, e := range extensions {
		extSet[e] = struct{}{}
	}
	nameSet := map[string]struct{}{}
	for _, n := range filenames {
		nameSet[n] = struct{}{}
	}

	var out []string
	var walk func(string) error
	walk = func(path string) error {
		entries, err := fs.ReadDir(path)
		if err != nil {
			return rserr.Io("readdir", path, err)
		}
		for _, e := range entries {
			child := filepath.Join(path, e.Name)
			if e.IsDir {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if e.IsLink {
				continue
			}
			ext := strings.TrimPrefix(filepath.Ext(e.Name), ".")
			_, byExt := extSet[ext]
			_, byName := nameSet[e.Name]
			if byExt || byName {
				out = append(out, child)
			}
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// collectEncrypted recursively walks dir and returns every "*.enc" file.
func collectEncrypted(fs fsx.FileSystem, dir string) ([]string, error) {
	var out []string
	var walk func(string) error
	walk = func(path string) error {
		entries, err := fs.ReadDir(path)
		if err != nil {
			return rserr.Io("readdir", path, err)
		}
		for _, e := range entries {
			child := filepath.Join(path, e.Name)
			if e.IsDir {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(e.Name, hashcodec.Ext) {
				out = append(out, child)
			}
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// plaintextPathFor derives the plaintext path an encrypted file refers to.
func plaintextPathFor(encPath string, parsed hashcodec.EncryptedName) string {
	return filepath.Join(filepath.Dir(encPath), parsed.Base)
}

// Status classifies every plaintext candidate and every encrypted sibling
// under dir, per spec §4.4.
func (m *Manager) Status(dir string) (Report, error) {
	plaintexts, err := collect(m.FS, dir, m.Config.FileExtensionsEnc, m.Config.FileNamesEnc)
	if err != nil {
		return Report{}, err
	}
	encFiles, err := collectEncrypted(m.FS, dir)
	if err != nil {
		return Report{}, err
	}

	type sibling struct {
		path   string
		hash8  string
		legacy bool
	}
	byPlaintext := map[string][]sibling{}
	for _, enc := range encFiles {
		parsed, err := hashcodec.Parse(filepath.Base(enc))
		if err != nil {
			return Report{}, rserr.InvalidFormat("sops-status", enc, err)
		}
		p := plaintextPathFor(enc, parsed)
		byPlaintext[p] = append(byPlaintext[p], sibling{path: enc, hash8: parsed.Hash8, legacy: parsed.Legacy})
	}

	claimed := map[string]bool{}
	var report Report
	for _, p := range plaintexts {
		data, err := m.FS.ReadFile(p)
		if err != nil {
			return Report{}, rserr.Io("read", p, err)
		}
		hash := hashcodec.ContentHash8(data)
		siblings := byPlaintext[p]
		claimed[p] = true

		ps := PlaintextStatus{Path: p, Hash: hash}
		if len(siblings) == 0 {
			ps.Status = StatusPending
			report.Plaintexts = append(report.Plaintexts, ps)
			continue
		}

		var matched bool
		var firstStale *sibling
		for i := range siblings {
			s := &siblings[i]
			if s.legacy {
				continue
			}
			if s.hash8 == hash {
				matched = true
				continue
			}
			ps.StaleSiblings = append(ps.StaleSiblings, s.path)
			if firstStale == nil {
				firstStale = s
			}
		}
		switch {
		case matched:
			ps.Status = StatusCurrent
		case firstStale != nil:
			ps.Status = StatusStale
			ps.OldHash = firstStale.hash8
		default:
			// Only legacy siblings (or none non-legacy): force migration.
			ps.Status = StatusPending
		}
		report.Plaintexts = append(report.Plaintexts, ps)
	}

	for p, siblings := range byPlaintext {
		if claimed[p] {
			continue
		}
		for _, s := range siblings {
			report.Orphans = append(report.Orphans, s.path)
		}
	}
	sort.Strings(report.Orphans)
	return report, nil
}

// keyArgs validates the configured recipient and returns the flag to pass
// to the encryption binary, age preferred over GPG when both are
// configured. Validation happens here, not at config load, so a key edited
// directly in the vault-local config file is still caught before it ever
// reaches the external binary.
func (m *Manager) keyArgs() ([]string, error) {
	switch {
	case m.Config.AgeKey != "":
		if err := crypt.ValidateAgeRecipient(m.Config.AgeKey); err != nil {
			return nil, rserr.Config("sops-recipient", m.Config.AgeKey, err)
		}
		return []string{"--age", m.Config.AgeKey}, nil
	case m.Config.GPGKey != "":
		if err := crypt.ValidateGPGKey(m.Config.GPGKey); err != nil {
			return nil, rserr.Config("sops-recipient", m.Config.GPGKey, err)
		}
		return []string{"--pgp", m.Config.GPGKey}, nil
	default:
		return nil, nil
	}
}

func dotenvArgs(path string) []string {
	if strings.TrimPrefix(filepath.Ext(path), ".") == "env" {
		return []string{"--input-type", "dotenv", "--output-type", "dotenv"}
	}
	return nil
}

// EncryptFile encrypts plaintext at path, returning the hash-addressed
// output path. If a sibling already matches path's current hash, this is a
// no-op fast path. Otherwise the new hash-addressed output is written
// first, and only then are the stale siblings (any other hash, plus the
// legacy no-hash form) deleted — per §5's observable ordering guarantee, so
// a crash or interrupted run between the two steps never leaves a
// plaintext with no encrypted sibling at all.
func (m *Manager) EncryptFile(ctx context.Context, path string) (string, error) {
	data, err := m.FS.ReadFile(path)
	if err != nil {
		return "", rserr.Io("read", path, err)
	}
	hash := hashcodec.ContentHash8(data)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	newPath := filepath.Join(dir, hashcodec.Format(base, hash))
	if m.FS.Exists(newPath) {
		return newPath, nil
	}

	keyArgs, err := m.keyArgs()
	if err != nil {
		return "", err
	}
	args := append([]string{"-e"}, dotenvArgs(path)...)
	args = append(args, keyArgs...)
	args = append(args, path)
	res, err := m.Cmd.Run(ctx, dir, m.binary(), args...)
	if err != nil {
		return "", rserr.ExternalCommand("sops-encrypt", path, err)
	}
	if res.ExitCode != 0 {
		return "", rserr.ExternalCommand("sops-encrypt", path, fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}
	if err := m.FS.WriteFileAtomic(newPath, res.Stdout); err != nil {
		return "", rserr.Io("write", newPath, err)
	}

	if err := m.deleteSiblings(dir, base, newPath); err != nil {
		return newPath, err
	}
	return newPath, nil
}

// deleteSiblings removes every "<base>.<hash8>.enc" and the legacy
// "<base>.enc" sibling of the plaintext named base in dir, except keep.
func (m *Manager) deleteSiblings(dir, base, keep string) error {
	entries, err := m.FS.ReadDir(dir)
	if err != nil {
		return rserr.Io("readdir", dir, err)
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, hashcodec.Ext) {
			continue
		}
		parsed, err := hashcodec.Parse(e.Name)
		if err != nil || parsed.Base != base {
			continue
		}
		p := filepath.Join(dir, e.Name)
		if p == keep {
			continue
		}
		if err := m.FS.Remove(p); err != nil {
			return rserr.Io("remove", p, err)
		}
	}
	return nil
}

// DecryptFile decrypts an encrypted sibling, returning the plaintext path
// it wrote to.
func (m *Manager) DecryptFile(ctx context.Context, encPath string) (string, error) {
	if !strings.HasSuffix(encPath, hashcodec.Ext) {
		return "", rserr.InvalidFormat("sops-decrypt", encPath, fmt.Errorf("not an encrypted filename"))
	}
	parsed, err := hashcodec.Parse(filepath.Base(encPath))
	if err != nil {
		return "", rserr.InvalidFormat("sops-decrypt", encPath, err)
	}
	outPath := plaintextPathFor(encPath, parsed)

	args := append([]string{"-d"}, dotenvArgs(outPath)...)
	args = append(args, encPath)
	res, err := m.Cmd.Run(ctx, filepath.Dir(encPath), m.binary(), args...)
	if err != nil {
		return "", rserr.ExternalCommand("sops-decrypt", encPath, err)
	}
	if res.ExitCode != 0 {
		return "", rserr.ExternalCommand("sops-decrypt", encPath, fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}
	if err := m.FS.WriteFileAtomic(outPath, res.Stdout); err != nil {
		return "", rserr.Io("write", outPath, err)
	}
	return outPath, nil
}

// EncryptAll encrypts every pending or stale plaintext under dir, in
// parallel. It returns the first failure encountered; files already
// processed before that failure remain written (no rollback). The returned
// path list's order is unspecified.
func (m *Manager) EncryptAll(ctx context.Context, dir string) ([]string, error) {
	report, err := m.Status(dir)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, p := range report.Plaintexts {
		if p.Status == StatusPending || p.Status == StatusStale {
			targets = append(targets, p.Path)
		}
	}
	return m.runParallel(ctx, targets, m.EncryptFile)
}

// DecryptAll decrypts every "*.enc" file under dir, in parallel. It returns
// the first failure encountered; files already processed before that
// failure remain written.
func (m *Manager) DecryptAll(ctx context.Context, dir string) ([]string, error) {
	targets, err := collectEncrypted(m.FS, dir)
	if err != nil {
		return nil, err
	}
	return m.runParallel(ctx, targets, m.DecryptFile)
}

// runParallel runs fn over items using a worker pool sized by m.workers().
// Every item is processed; on failure it returns the results of the items
// that precede the first failing one in input order, together with that
// item's error.
func (m *Manager) runParallel(ctx context.Context, items []string, fn func(context.Context, string) (string, error)) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	n := m.workers()
	if n > len(items) {
		n = len(items)
	}

	results := make([]string, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	indices := make(chan int, len(items))
	for i := range items {
		indices <- i
	}
	close(indices)

	worker := func() {
		defer wg.Done()
		for i := range indices {
			out, err := fn(ctx, items[i])
			results[i] = out
			errs[i] = err
		}
	}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	wg.Wait()

	var out []string
	for i, r := range results {
		if errs[i] != nil {
			return out, errs[i]
		}
		out = append(out, r)
	}
	return out, nil
}

// Clean deletes every plaintext under dir classified as current (its
// content hash matches an encrypted sibling). Plaintexts classified as
// pending or stale are never deleted: this is the core safety property of
// the whole encryption lifecycle.
func (m *Manager) Clean(dir string) ([]string, error) {
	report, err := m.Status(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, p := range report.Plaintexts {
		if p.Status != StatusCurrent {
			continue
		}
		if err := m.FS.Remove(p.Path); err != nil {
			return removed, rserr.Io("remove", p.Path, err)
		}
		removed = append(removed, p.Path)
	}
	return removed, nil
}

// MigrationResult is one legacy-to-hash-addressed migration.
type MigrationResult struct {
	Old string
	New string
}

// Migrate decrypts every orphaned legacy "*.enc" file under dir and
// re-encrypts the resulting plaintext into hash-addressed form, deleting
// the legacy file as a side effect of EncryptFile's sibling cleanup.
// Callers must obtain explicit user acknowledgement before calling this.
func (m *Manager) Migrate(ctx context.Context, dir string) ([]MigrationResult, error) {
	report, err := m.Status(dir)
	if err != nil {
		return nil, err
	}
	var results []MigrationResult
	for _, enc := range report.Orphans {
		parsed, err := hashcodec.Parse(filepath.Base(enc))
		if err != nil || !parsed.Legacy {
			continue
		}
		plainPath, err := m.DecryptFile(ctx, enc)
		if err != nil {
			return results, err
		}
		newPath, err := m.EncryptFile(ctx, plainPath)
		if err != nil {
			return results, err
		}
		results = append(results, MigrationResult{Old: enc, New: newPath})
	}
	return results, nil
}

// Package hashcodec implements the content-address scheme used for
// encrypted filenames: an 8 lowercase hex digit hash of a file's plaintext,
// embedded as "<name>.<hash8>.enc".
package hashcodec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashLen is the length, in hex characters, of the embedded content hash.
const HashLen = 8

// Ext is the suffix every encrypted filename carries.
const Ext = ".enc"

// ContentHash8 returns the 8 lowercase hex digit hash of plaintext: the
// first four bytes of its SHA-256 digest.
func ContentHash8(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:4])
}

// EncryptedName is a parsed encrypted filename.
type EncryptedName struct {
	Base   string // the plaintext's base filename, e.g. "secrets.env"
	Hash8  string // empty for a legacy name with no embedded hash
	Legacy bool
}

// Format renders base + hash into "<base>.<hash8>.enc".
func Format(base, hash8 string) string {
	return fmt.Sprintf("%s.%s%s", base, hash8, Ext)
}

// FormatLegacy renders the pre-hash "<base>.enc" form, recognized but
// always treated as requiring migration.
func FormatLegacy(base string) string {
	return base + Ext
}

// Parse decodes an encrypted filename into its base and embedded hash.
// It rejects 7- or 9-character hash runs, non-hex hash characters, and an
// empty base name. A name with no hash segment at all ("name.enc") is
// accepted as legacy.
func Parse(name string) (EncryptedName, error) {
	if !strings.HasSuffix(name, Ext) {
		return EncryptedName{}, fmt.Errorf("hashcodec: %q does not end in %q", name, Ext)
	}
	trimmed := strings.TrimSuffix(name, Ext)
	if trimmed == "" {
		return EncryptedName{}, fmt.Errorf("hashcodec: %q has an empty base name", name)
	}

	idx := strings.LastIndexByte(trimmed, '.')
	if idx < 0 {
		// "name.enc" with no further dot: legacy, no hash at all.
		return EncryptedName{Base: trimmed, Legacy: true}, nil
	}
	candidate := trimmed[idx+1:]
	base := trimmed[:idx]

	// Only a segment whose length is near HashLen is treated as an
	// attempted hash; anything else is just another dot in a legacy base
	// name (e.g. "my.thing.enc").
	switch {
	case len(candidate) == HashLen:
		if !isAllLowerHex(candidate) {
			return EncryptedName{}, fmt.Errorf("hashcodec: %q has a non-hex hash segment %q", name, candidate)
		}
		if base == "" {
			return EncryptedName{}, fmt.Errorf("hashcodec: %q has an empty base name", name)
		}
		return EncryptedName{Base: base, Hash8: candidate}, nil
	case len(candidate) == HashLen-1 || len(candidate) == HashLen+1:
		return EncryptedName{}, fmt.Errorf("hashcodec: %q has a %d-character hash segment, want %d", name, len(candidate), HashLen)
	default:
		return EncryptedName{Base: trimmed, Legacy: true}, nil
	}
}

func isAllLowerHex(s string) bool {
	for _, r := range s {
		if !isLowerHex(r) {
			return false
		}
	}
	return true
}

func isLowerHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

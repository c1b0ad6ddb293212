// Package crypt validates the shape of configured encryption recipients.
// It never performs encryption itself — per spec §1's Non-goals this system
// shells out to an external SOPS-family binary for that — filippo.io/age is
// used only to catch a malformed sops.age_key before handing it to that
// binary, exactly as the teacher's internal/vault/keys.go validates
// recipient strings up front.
package crypt

import (
	"fmt"
	"strings"

	"filippo.io/age"
)

// ValidateAgeRecipient reports whether recipient parses as a well-formed
// X25519 age recipient string (the "age1..." form). An empty string is
// treated as "not configured" and is not an error.
func ValidateAgeRecipient(recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil
	}
	if _, err := age.ParseX25519Recipient(recipient); err != nil {
		return fmt.Errorf("invalid age recipient %q: %w", recipient, err)
	}
	return nil
}

// ValidateGPGKey does the minimal shape check this system can do without a
// GPG keyring lookup: a non-empty key id or fingerprint, hex digits only
// (an actual keyring lookup belongs to the external binary, not here).
func ValidateGPGKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	for _, r := range key {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return fmt.Errorf("invalid gpg key id %q: expected hex digits", key)
		}
	}
	return nil
}

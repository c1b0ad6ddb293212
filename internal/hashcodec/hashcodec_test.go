package hashcodec

import "testing"

func TestContentHash8IsEightLowerHex(t *testing.T) {
	h := ContentHash8([]byte("A=1\n"))
	if len(h) != 8 {
		t.Fatalf("len = %d, want 8", len(h))
	}
	for _, r := range h {
		if !isLowerHex(r) {
			t.Fatalf("non-hex rune %q in %q", r, h)
		}
	}
}

func TestContentHash8Deterministic(t *testing.T) {
	a := ContentHash8([]byte("same"))
	b := ContentHash8([]byte("same"))
	if a != b {
		t.Fatalf("hash not deterministic: %q vs %q", a, b)
	}
}

func TestFormatAndParseRoundTrip(t *testing.T) {
	name := Format("secrets.env", "a1b2c3d4")
	if name != "secrets.env.a1b2c3d4.enc" {
		t.Fatalf("name = %q", name)
	}
	parsed, err := Parse(name)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Base != "secrets.env" || parsed.Hash8 != "a1b2c3d4" || parsed.Legacy {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestParseLegacyNoHash(t *testing.T) {
	parsed, err := Parse("secrets.env.enc")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Legacy || parsed.Base != "secrets.env" || parsed.Hash8 != "" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestParseRejectsSevenCharHash(t *testing.T) {
	if _, err := Parse("secrets.env.1234567.enc"); err == nil {
		t.Fatalf("expected error for 7-char hash")
	}
}

func TestParseRejectsNineCharHash(t *testing.T) {
	if _, err := Parse("secrets.env.123456789.enc"); err == nil {
		t.Fatalf("expected error for 9-char hash")
	}
}

func TestParseRejectsNonHex(t *testing.T) {
	if _, err := Parse("secrets.env.zzzzzzzz.enc"); err == nil {
		t.Fatalf("expected error for non-hex hash")
	}
}

func TestParseRejectsEmptyBase(t *testing.T) {
	if _, err := Parse(".enc"); err == nil {
		t.Fatalf("expected error for empty base name")
	}
}

func TestParseRejectsMissingExtension(t *testing.T) {
	if _, err := Parse("secrets.env"); err == nil {
		t.Fatalf("expected error for missing .enc suffix")
	}
}

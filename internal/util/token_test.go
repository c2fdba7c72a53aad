package util

import (
	"strings"
	"testing"
)

func TestGenerateSessionTokenURLSafe(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken returned error: %v", err)
	}
	if len(token) != 43 {
		t.Fatalf("expected 43 characters for 32 raw bytes, got %d", len(token))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("expected URL-safe token, got %q", token)
	}
}

func TestGenerateSessionTokenUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken returned error: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("generated duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestDeriveAccountKey(t *testing.T) {
	key, err := DeriveAccountKey("9D2B1C44-8E5A-4F12-B6C0-1A2B3C4D5E6F")
	if err != nil {
		t.Fatalf("DeriveAccountKey returned error: %v", err)
	}
	if len(key) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(key))
	}
	if strings.Contains(key, "9d2b1c44") {
		t.Fatalf("derived key must not embed the raw license key")
	}

	lower, err := DeriveAccountKey("  9d2b1c44-8e5a-4f12-b6c0-1a2b3c4d5e6f ")
	if err != nil {
		t.Fatalf("DeriveAccountKey returned error: %v", err)
	}
	if lower != key {
		t.Fatalf("expected case and whitespace insensitive derivation")
	}

	if _, err := DeriveAccountKey("   "); err == nil {
		t.Fatalf("expected error for blank license key")
	}
}

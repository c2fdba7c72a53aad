package util

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTManagerGenerateAndParse(t *testing.T) {
	manager := NewJWTManager("top-secret", time.Minute)

	adminID := uuid.New()
	fullName := "Ops Admin"
	token, expiresAt, err := manager.Generate(adminID, "admin@example.com", &fullName)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token to be non-empty")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatalf("expected expiry in the future")
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.AdminID != adminID {
		t.Fatalf("expected admin id %s, got %s", adminID, claims.AdminID)
	}
	if claims.Email != "admin@example.com" {
		t.Fatalf("expected email claim to round-trip, got %q", claims.Email)
	}
	if claims.FullName == nil || *claims.FullName != fullName {
		t.Fatalf("expected full name claim to be set")
	}
}

func TestJWTManagerParseExpiredToken(t *testing.T) {
	manager := NewJWTManager("secret", time.Millisecond)
	token, _, err := manager.Generate(uuid.New(), "admin@example.com", nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, err := manager.Parse(token); err == nil {
		t.Fatalf("expected parse error for expired token")
	}
}

func TestJWTManagerParseWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret-a", time.Minute)
	token, _, err := manager.Generate(uuid.New(), "admin@example.com", nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	other := NewJWTManager("secret-b", time.Minute)
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected parse error for token signed with different secret")
	}
}

package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// sessionTokenBytes gives 256 bits of entropy per token.
const sessionTokenBytes = 32

// GenerateSessionToken returns a URL-safe bearer token drawn from the
// operating system CSPRNG.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DeriveAccountKey one-way hashes a raw license key into the stable lookup
// key used everywhere else in the system. The raw key must never be stored
// or logged; only its digest is.
func DeriveAccountKey(rawLicenseKey string) (string, error) {
	trimmed := strings.TrimSpace(rawLicenseKey)
	if trimmed == "" {
		return "", errors.New("license key cannot be empty")
	}
	sum := sha256.Sum256([]byte(strings.ToLower(trimmed)))
	return hex.EncodeToString(sum[:]), nil
}

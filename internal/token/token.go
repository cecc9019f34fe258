// Package token generates the single-use credentials the linking protocol
// hands out. Every token comes from crypto/rand, sized to resist guessing
// within its five-minute validity window.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// New returns a 64-character hex token backed by 32 random bytes.
func New() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewState returns a URL-safe state parameter for the OAuth redirect.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

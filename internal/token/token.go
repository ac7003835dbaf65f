// Package token mints opaque guest session tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

const sessionTokenBytes = 32

// NewSessionToken returns a hex-encoded cryptographically random token.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package auth holds the authentication building blocks: Google identity
// verification, the OAuth code flow, session token generation and the HTTP
// middleware that turns a session token into an email in the request context.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// sessionTokenBytes is the entropy of a session token: 256 bits.
const sessionTokenBytes = 32

// GenerateSessionToken returns a new random, URL-safe session token.
func GenerateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenDigest is the storage key for a session token. Only the digest is
// persisted, so a leaked sessions table cannot be replayed as bearer tokens.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

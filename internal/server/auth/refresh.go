package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// NewRefreshToken generates a cryptographically random, URL-safe opaque
// string. The token carries no claims; validity is decided solely by
// matching it against stored session hashes.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

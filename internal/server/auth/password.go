package auth

import "golang.org/x/crypto/bcrypt"

// HashSecret produces a salted bcrypt hash of secret. The salt is embedded
// in the output, so two calls with the same input yield different hashes.
// Used for user passwords and for refresh tokens at rest.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches the stored hash. A malformed
// stored hash counts as a mismatch, never an error.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

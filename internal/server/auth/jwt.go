// Package auth implements the credential primitives of the backend: signed
// access tokens (HS256 JWT), opaque refresh tokens, and the bcrypt hasher
// shared by passwords and refresh-token-at-rest storage.
package auth

import (
	"errors"
	"time"

	"photodrop/internal/common"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token claim set: registered claims plus the subject
// user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"sub,omitempty"`
}

// GenerateToken signs an access token for userID valid for validityDuration.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})

	return token.SignedString(secretKey)
}

// GetUserIDFromToken verifies signature and expiry and returns the subject.
// Expired tokens map to common.ErrTokenExpired; every other failure,
// including a missing subject, maps to common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}

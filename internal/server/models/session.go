package models

import "time"

// Session records one issued refresh-token lineage. The refresh token itself
// is never stored, only its bcrypt hash. A session is mutated exactly once,
// by revocation; refreshing an access token leaves the row untouched.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	DeviceName       string
	IPAddress        string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
}

// SessionMetadata carries the client attributes captured at login time.
type SessionMetadata struct {
	UserAgent  string
	DeviceName string
	IPAddress  string
}

package models

import "time"

// User is an account owning sessions and photos. Deleting a user cascades
// to both (enforced by the schema).
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

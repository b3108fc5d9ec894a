package storage

import "time"

// UserRecord represents a registered user in the database.
type UserRecord struct {
	ID           int
	Username     string
	PasswordHash string // bcrypt hash, never plaintext
	Email        string
	FullName     string
	Organization string
	CreatedAt    time.Time
}

// Credential is the subset of a user record needed for authentication.
type Credential struct {
	FullName     string
	PasswordHash string
}

package model

import "time"

// User is an account in the user directory. The password is stored as a
// bcrypt hash and never serialised to clients.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

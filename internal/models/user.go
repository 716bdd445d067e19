package models

import "time"

// User represents a registered account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public view of a user in follow and subscriber lists
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

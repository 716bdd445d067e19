package models

import "time"

// DefaultResetTTL is how long a password reset stays valid when no TTL is configured
const DefaultResetTTL = 10 * time.Minute

// PasswordReset is a single-use token that lets a user set a new password.
// Rows are marked used or revoked, never erased by the API.
type PasswordReset struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (r *PasswordReset) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *PasswordReset) IsUsed() bool {
	return r.UsedAt != nil
}

func (r *PasswordReset) IsRevoked() bool {
	return r.RevokedAt != nil
}

package model

import "time"

// UserAccount is a back-office user. PasswordHash holds
// hex(HMAC-SHA256(pepper, password)); the pepper lives in Secrets Manager.
type UserAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthUser is the token-cached identity attached to authenticated requests.
type AuthUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

package models

import "time"

// Session is a bearer token issued by a successful login.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

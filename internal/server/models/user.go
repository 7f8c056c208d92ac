package models

import "time"

// RoleUser is the role assigned to every account at creation.
const RoleUser = "user"

type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

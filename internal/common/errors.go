// Package common defines shared constants and sentinel errors used across
// client and server layers of gophdrop. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorUnauthorized covers a wrong password, an unknown user and an
	// invalid or expired session token alike.
	ErrorUnauthorized = errors.New("unauthorized")

	// Client-side state errors.
	ErrNotLoggedIn = errors.New("not logged in")
)

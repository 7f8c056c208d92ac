// Package metadata is the client's local key/value store. The REPL keeps the
// session token here so a restarted client stays logged in.
package metadata

import (
	"context"
)

// KeyToken holds the bearer token from the last successful login.
const KeyToken = "token"

type Repository interface {
	// Get reports ok=false for a key that was never put or was deleted.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

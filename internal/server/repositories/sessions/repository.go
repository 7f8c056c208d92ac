// Package sessions declares the server-side repository contract for login
// sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/server/models"
)

// Repository stores bearer tokens. Expired rows are never reaped; every read
// filters on the expiry instead.
type Repository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *models.Session) error

	// FindValid returns the session for token if it expires after now,
	// otherwise common.ErrorNotFound.
	FindValid(ctx context.Context, token string, now time.Time) (*models.Session, error)

	// DeleteExpired removes the row for token only when it expired at or
	// before now, freeing the key for a new session.
	DeleteExpired(ctx context.Context, token string, now time.Time) error

	// Delete removes the row for token. A missing row is not an error.
	Delete(ctx context.Context, token string) error
}

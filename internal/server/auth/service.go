// Package auth implements account registration and the bearer-token session
// lifecycle: login issues a random token valid for SessionTTL, every gated
// command validates it, logout deletes it.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/common"
	"github.com/dmitrijs2005/gophdrop/internal/cryptox"
	"github.com/dmitrijs2005/gophdrop/internal/dbx"
	"github.com/dmitrijs2005/gophdrop/internal/server/models"
	"github.com/dmitrijs2005/gophdrop/internal/server/repositories/repomanager"
)

// SessionTTL is the fixed lifetime of a session. Sessions are never renewed.
const SessionTTL = 24 * time.Hour

// ErrEmptyCredentials is returned by Register for an empty username or password.
var ErrEmptyCredentials = errors.New("empty username or password")

// PasswordHasher produces and checks self-salting encoded hashes.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, encoded string) (bool, error)
}

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	now         func() time.Time
	newToken    func() (string, error)

	// dummyHash is verified against for unknown usernames so that a miss
	// costs the same as a wrong password.
	dummyHash string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHasher replaces the default argon2id hasher.
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithTokenSource replaces the random token generator.
func WithTokenSource(fn func() (string, error)) Option {
	return func(s *Service) { s.newToken = fn }
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, opts ...Option) (*Service, error) {
	s := &Service{
		db:          db,
		repomanager: m,
		hasher:      cryptox.NewHasher(cryptox.DefaultParams),
		now:         time.Now,
		newToken: func() (string, error) {
			return common.MakeRandHexString(common.TokenByteSize)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := s.hasher.Hash(common.GenerateRandByteArray(16))
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register creates an account. A taken username yields common.ErrorAlreadyExists.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now(),
	}
	if _, err := s.repomanager.Users(s.db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// Login checks the credentials and issues a new session token. Unknown users
// and wrong passwords both yield common.ErrorUnauthorized.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(pw, s.dummyHash)
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := s.hasher.Verify(pw, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}

	token, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sessions(tx)
		if err := repo.DeleteExpired(ctx, token, now); err != nil {
			return err
		}
		return repo.Create(ctx, session)
	})
	if err != nil {
		return "", fmt.Errorf("error storing session: %w", err)
	}

	return token, nil
}

// Validate returns the user id owning token if the session has not expired.
// Anything else yields common.ErrorUnauthorized.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrorUnauthorized
	}

	session, err := s.repomanager.Sessions(s.db).FindValid(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error looking up session: %w", err)
	}
	return session.UserID, nil
}

// Logout deletes the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, token); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

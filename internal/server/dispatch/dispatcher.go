// Package dispatch serves a single gophdrop connection: it reads one command
// tag, runs the matching handler and closes the channel. Every failure is
// terminal for the connection and never escapes Serve.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/common"
	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/server/storage"
	"github.com/dmitrijs2005/gophdrop/internal/telemetry"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/wire"
	"github.com/google/uuid"
)

// ChunkSize is the unit in which file bodies are moved.
const ChunkSize = 4096

// Feedback strings sent to clients.
const (
	FeedbackUserCreated      = wire.FeedbackUserCreated
	FeedbackCreateUserFailed = wire.FeedbackCreateUserFailed
	FeedbackLoginSuccessful  = wire.FeedbackLoginSuccessful
	FeedbackLoginFailed      = wire.FeedbackLoginFailed
	FeedbackLoggedOut        = wire.FeedbackLoggedOut
)

// ErrTransferIncomplete means the peer stopped before the declared size.
var ErrTransferIncomplete = errors.New("transfer incomplete")

// Authenticator is the session authority the handlers consult.
type Authenticator interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	Validate(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

type Dispatcher struct {
	auth    Authenticator
	store   storage.Storage
	logger  logging.Logger
	metrics *telemetry.Metrics
}

// New builds a Dispatcher. A nil metrics uses the global instruments.
func New(auth Authenticator, store storage.Storage, logger logging.Logger, metrics *telemetry.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = telemetry.GetMetrics()
	}
	return &Dispatcher{
		auth:    auth,
		store:   store,
		logger:  logger.With("module", "dispatch"),
		metrics: metrics,
	}
}

type handlerFunc func(ctx context.Context, ch transport.Channel, log logging.Logger) error

func (d *Dispatcher) handler(tag wire.Tag) handlerFunc {
	switch tag {
	case wire.TagCreateUser:
		return d.handleCreateUser
	case wire.TagLogin:
		return d.handleLogin
	case wire.TagLogout:
		return d.handleLogout
	case wire.TagUpload:
		return d.handleUpload
	case wire.TagDownload:
		return d.handleDownload
	case wire.TagList:
		return d.handleList
	}
	return nil
}

// Serve handles exactly one command on ch and closes it.
func (d *Dispatcher) Serve(ctx context.Context, ch transport.Channel) {
	log := d.logger.With("conn_id", uuid.NewString(), "remote", ch.RemoteAddr(), "tls", ch.Secure())

	d.metrics.ActiveConnections.Add(ctx, 1)
	defer d.metrics.ActiveConnections.Add(ctx, -1)

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "panic while serving connection", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		if err := ch.Close(); err != nil {
			log.Debug(ctx, "close failed", "error", err)
		}
	}()

	tag, err := wire.ReadTag(ch)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownCommand) {
			log.Warn(ctx, "unknown command, closing", "tag", tag.String())
			d.metrics.RecordCommand(ctx, "unknown", telemetry.ResultProtocol, 0)
			return
		}
		log.Warn(ctx, "failed to read command", "error", err)
		return
	}

	log = log.With("command", tag.String())
	start := time.Now()

	err = d.handler(tag)(ctx, ch, log)

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	result := classify(err)
	d.metrics.RecordCommand(ctx, tag.String(), result, elapsed)

	if err != nil {
		log.Warn(ctx, "command failed", "error", err, "result", result)
		return
	}
	log.Info(ctx, "command served", "elapsed_ms", elapsed)
}

func classify(err error) string {
	var chErr *transport.ChannelError
	switch {
	case err == nil:
		return telemetry.ResultOK
	case errors.Is(err, common.ErrorUnauthorized):
		return telemetry.ResultUnauthorized
	case errors.Is(err, wire.ErrFieldTooLarge),
		errors.Is(err, wire.ErrEmptyField),
		errors.Is(err, wire.ErrTooManyEntries),
		errors.Is(err, storage.ErrInvalidName):
		return telemetry.ResultProtocol
	case errors.Is(err, ErrTransferIncomplete), errors.As(err, &chErr):
		return telemetry.ResultIO
	}
	return telemetry.ResultFailed
}

// authorize reads the token field and resolves it to a user id.
func (d *Dispatcher) authorize(ctx context.Context, ch transport.Channel) (string, error) {
	token, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	userID, err := d.auth.Validate(ctx, token)
	if err != nil {
		return "", fmt.Errorf("validate token: %w", err)
	}
	return userID, nil
}

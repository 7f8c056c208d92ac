// Package listener accepts TCP connections and hands each one to the worker
// pool. The TLS handshake and all protocol work happen inside the pool task,
// so a slow client never blocks the accept loop.
package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/telemetry"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/workerpool"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Handler serves one connection and closes it.
type Handler interface {
	Serve(ctx context.Context, ch transport.Channel)
}

// Submitter queues work; *workerpool.Pool satisfies it.
type Submitter interface {
	Submit(task workerpool.Task) error
}

type Server struct {
	address     string
	tlsConfig   *tls.Config
	idleTimeout time.Duration
	pool        Submitter
	handler     Handler
	logger      logging.Logger
	metrics     *telemetry.Metrics
}

type Option func(*Server)

// WithTLS makes every accepted connection a TLS server channel.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithIdleTimeout closes connections that make no progress for d. Zero
// disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// WithMetrics overrides the global instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func New(address string, pool Submitter, handler Handler, logger logging.Logger, opts ...Option) *Server {
	s := &Server{
		address: address,
		pool:    pool,
		handler: handler,
		logger:  logger.With("module", "listener"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = telemetry.GetMetrics()
	}
	return s
}

// Run binds the address and accepts until ctx is cancelled. Connections
// already handed to the pool are left to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping listener...")
		case <-stop:
		}
		_ = ln.Close()
	}()

	s.logger.Info(ctx, "Starting listener", "address", ln.Addr().String(), "tls", s.tlsConfig != nil)

	// tasks outlive the accept loop
	taskCtx := context.WithoutCancel(ctx)

	retry := newAcceptBackoff()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := retry.NextBackOff()
			s.logger.Warn(ctx, "accept failed, retrying", "error", err, "backoff", wait)
			time.Sleep(wait)
			continue
		}
		retry.Reset()

		s.metrics.ConnectionsTotal.Add(ctx, 1)

		if err := s.pool.Submit(func() { s.handle(taskCtx, conn) }); err != nil {
			s.metrics.TasksRejected.Add(ctx, 1)
			s.logger.Warn(ctx, "connection rejected", "remote", conn.RemoteAddr().String(), "error", err)
			_ = conn.Close()
			continue
		}
		s.metrics.TasksSubmitted.Add(ctx, 1)
	}
}

func newAcceptBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minAcceptBackoff
	b.MaxInterval = maxAcceptBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	if s.idleTimeout > 0 {
		conn = &idleConn{Conn: conn, timeout: s.idleTimeout}
	}

	ch, err := transport.NewServerChannel(ctx, conn, s.tlsConfig)
	if err != nil {
		s.metrics.HandshakeFailures.Add(ctx, 1)
		s.logger.Warn(ctx, "handshake failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	s.handler.Serve(ctx, ch)
}

// idleConn pushes the deadline forward on every read and write.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
)

// ChunkSize is the unit in which file bodies are moved.
const ChunkSize = 4096

// DefaultDownloadDir receives downloaded files unless WithDownloadDir is set.
const DefaultDownloadDir = "client"

type dialFunc func(ctx context.Context, addr string, cfg *tls.Config) (transport.Channel, error)

type Client struct {
	addr        string
	tlsConfig   *tls.Config
	downloadDir string
	logger      logging.Logger
	dial        dialFunc
}

type Option func(*Client)

// WithTLS makes every command connection a TLS channel.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Client) { c.tlsConfig = cfg }
}

// WithDownloadDir sets where Download writes files.
func WithDownloadDir(dir string) Option {
	return func(c *Client) { c.downloadDir = dir }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for the server at addr.
func New(addr string, opts ...Option) *Client {
	c := &Client{
		addr:        addr,
		downloadDir: DefaultDownloadDir,
		logger:      logging.Discard(),
		dial:        transport.Dial,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "client")
	return c
}

func (c *Client) connect(ctx context.Context) (transport.Channel, error) {
	ch, err := c.dial(ctx, c.addr, c.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.logger.Debug(ctx, "connected", "remote", ch.RemoteAddr(), "tls", ch.Secure())
	return ch, nil
}

// rejected marks a read that found the connection closed by the server.
func rejected(err error) error {
	if errors.Is(err, transport.ErrPeerClosed) {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return err
}

// Package transport provides the byte channel every gophdrop connection is
// carried over. A Channel is either plain TCP or TLS; the choice is made once
// when the channel is built and callers never see the difference.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

var (
	// ErrPeerClosed means the peer closed the connection before any byte of
	// the requested read arrived.
	ErrPeerClosed = errors.New("peer closed connection")
	// ErrShortRead means the peer closed the connection in the middle of a read.
	ErrShortRead = errors.New("short read")
)

// ChannelError is returned for every transport level failure.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Channel is a bidirectional byte stream with exact-length reads.
type Channel interface {
	SendExact(b []byte) error
	RecvExact(n int) ([]byte, error)
	RecvSome(max int) ([]byte, error)
	Close() error
	Secure() bool
	RemoteAddr() string
}

// conn implements Channel over a net.Conn, which is a *tls.Conn for secure
// channels.
type conn struct {
	c         net.Conn
	secure    bool
	closeOnce sync.Once
	closeErr  error
}

// NewPlainChannel wraps an established TCP connection.
func NewPlainChannel(c net.Conn) Channel {
	return &conn{c: c}
}

// NewServerChannel wraps an accepted connection. When cfg is non-nil the TLS
// handshake is performed before returning; a failed handshake closes c.
func NewServerChannel(ctx context.Context, c net.Conn, cfg *tls.Config) (Channel, error) {
	if cfg == nil {
		return NewPlainChannel(c), nil
	}
	tc := tls.Server(c, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = c.Close()
		return nil, &ChannelError{Op: "handshake", Err: err}
	}
	return &conn{c: tc, secure: true}, nil
}

// Dial connects to addr and, when cfg is non-nil, completes a client TLS
// handshake.
func Dial(ctx context.Context, addr string, cfg *tls.Config) (Channel, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ChannelError{Op: "dial", Err: err}
	}
	if cfg == nil {
		return NewPlainChannel(c), nil
	}

	tc := tls.Client(c, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = c.Close()
		return nil, &ChannelError{Op: "handshake", Err: err}
	}
	return &conn{c: tc, secure: true}, nil
}

func (c *conn) SendExact(b []byte) error {
	for len(b) > 0 {
		n, err := c.c.Write(b)
		if err != nil {
			return &ChannelError{Op: "write", Err: err}
		}
		b = b[n:]
	}
	return nil
}

func (c *conn) RecvExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, &ChannelError{Op: "read", Err: fmt.Errorf("negative length %d", n)}
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(c.c, buf); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			err = ErrPeerClosed
		case errors.Is(err, io.ErrUnexpectedEOF):
			err = ErrShortRead
		}
		return nil, &ChannelError{Op: "read", Err: err}
	}
	return buf, nil
}

func (c *conn) RecvSome(max int) ([]byte, error) {
	if max <= 0 {
		return nil, &ChannelError{Op: "read", Err: fmt.Errorf("invalid buffer size %d", max)}
	}
	buf := make([]byte, max)
	for {
		n, err := c.c.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if errors.Is(err, io.EOF) {
			return nil, &ChannelError{Op: "read", Err: ErrPeerClosed}
		}
		if err != nil {
			return nil, &ChannelError{Op: "read", Err: err}
		}
	}
}

// Close shuts the channel down. For TLS channels a close_notify alert is sent
// first. Subsequent calls return the first result.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.c.Close()
	})
	return c.closeErr
}

func (c *conn) Secure() bool { return c.secure }

func (c *conn) RemoteAddr() string {
	if a := c.c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

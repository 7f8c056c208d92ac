package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophdrop/internal/filex"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/wire"
)

func sendCredentials(ch transport.Channel, tag wire.Tag, username, password string) error {
	if err := wire.WriteTag(ch, tag); err != nil {
		return err
	}
	if err := wire.WriteString(ch, username); err != nil {
		return err
	}
	return wire.WriteString(ch, password)
}

func checkCredentials(username, password string) error {
	if len(username) > wire.MaxCredentialSize || len(password) > wire.MaxCredentialSize {
		return fmt.Errorf("credentials: %w", wire.ErrFieldTooLarge)
	}
	return nil
}

// checkFilename applies the server's rules locally so a bad name fails
// before a connection is made.
func checkFilename(name string) error {
	if !filex.IsSingleElement(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if len(name) >= wire.MaxFilenameSize {
		return fmt.Errorf("%w: %d bytes, limit %d: %w", ErrInvalidFilename, len(name), wire.MaxFilenameSize-1, wire.ErrFieldTooLarge)
	}
	return nil
}

// CreateUser registers an account and returns the server's feedback text.
func (c *Client) CreateUser(ctx context.Context, username, password string) (string, error) {
	if err := checkCredentials(username, password); err != nil {
		return "", err
	}

	ch, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer ch.Close()

	if err := sendCredentials(ch, wire.TagCreateUser, username, password); err != nil {
		return "", err
	}
	feedback, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", rejected(err)
	}
	return feedback, nil
}

// Login returns a bearer token. Any feedback other than the success string
// yields ErrLoginFailed.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if err := checkCredentials(username, password); err != nil {
		return "", err
	}

	ch, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer ch.Close()

	if err := sendCredentials(ch, wire.TagLogin, username, password); err != nil {
		return "", err
	}
	feedback, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", rejected(err)
	}
	if feedback != wire.FeedbackLoginSuccessful {
		return "", fmt.Errorf("%w: %s", ErrLoginFailed, feedback)
	}

	token, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", rejected(err)
	}
	return token, nil
}

// Logout ends the session behind token and returns the feedback text.
func (c *Client) Logout(ctx context.Context, token string) (string, error) {
	ch, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer ch.Close()

	if err := wire.WriteTag(ch, wire.TagLogout); err != nil {
		return "", err
	}
	if err := wire.WriteString(ch, token); err != nil {
		return "", err
	}
	feedback, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", rejected(err)
	}
	return feedback, nil
}

// Upload sends the file at path under its base name and returns the number
// of bytes sent. The server has no reply for uploads; it closes cleanly once
// the file is stored, so Upload waits for that close. A refused token or name
// surfaces as ErrRejected.
func (c *Client) Upload(ctx context.Context, token, path string) (int64, error) {
	name := filepath.Base(path)
	if err := checkFilename(name); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	size := fi.Size()

	ch, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer ch.Close()

	if err := wire.WriteTag(ch, wire.TagUpload); err != nil {
		return 0, uploadRejected(err)
	}
	if err := wire.WriteString(ch, token); err != nil {
		return 0, uploadRejected(err)
	}
	if err := wire.WriteString(ch, name); err != nil {
		return 0, uploadRejected(err)
	}
	if err := wire.WriteFileSize(ch, uint64(size)); err != nil {
		return 0, uploadRejected(err)
	}

	buf := make([]byte, ChunkSize)
	var sent int64
	for sent < size {
		n, err := f.Read(buf)
		if n > 0 {
			if int64(n) > size-sent {
				n = int(size - sent)
			}
			if err := ch.SendExact(buf[:n]); err != nil {
				return sent, uploadRejected(err)
			}
			sent += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sent, err
		}
	}

	if sent < size {
		return sent, fmt.Errorf("%w: sent %d of %d bytes", ErrTransferIncomplete, sent, size)
	}

	if err := awaitClose(ch); err != nil {
		return sent, err
	}

	c.logger.Info(ctx, "file sent", "file", name, "size", size)
	return sent, nil
}

// Download fetches name into the download directory and returns the local
// path and the number of bytes received. A short transfer keeps the partial
// file and reports ErrTransferIncomplete.
func (c *Client) Download(ctx context.Context, token, name string) (string, int64, error) {
	if err := checkFilename(name); err != nil {
		return "", 0, err
	}

	ch, err := c.connect(ctx)
	if err != nil {
		return "", 0, err
	}
	defer ch.Close()

	if err := wire.WriteTag(ch, wire.TagDownload); err != nil {
		return "", 0, err
	}
	if err := wire.WriteString(ch, token); err != nil {
		return "", 0, err
	}
	if err := wire.WriteString(ch, name); err != nil {
		return "", 0, err
	}

	size, err := wire.ReadFileSize(ch)
	if err != nil {
		return "", 0, rejected(err)
	}

	dir, err := filex.EnsureSubdDir(c.downloadDir)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var received uint64
	for received < size {
		want := uint64(ChunkSize)
		if rest := size - received; rest < want {
			want = rest
		}
		chunk, err := ch.RecvSome(int(want))
		if err != nil {
			c.logger.Warn(ctx, "download incomplete", "file", name, "expected", size, "received", received)
			return path, int64(received), fmt.Errorf("%w: received %d of %d bytes", ErrTransferIncomplete, received, size)
		}
		if _, err := f.Write(chunk); err != nil {
			return path, int64(received), err
		}
		received += uint64(len(chunk))
	}

	c.logger.Info(ctx, "file received", "file", name, "size", size)
	return path, int64(received), nil
}

// List returns the names of the files stored on the server.
func (c *Client) List(ctx context.Context, token string) ([]string, error) {
	ch, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := wire.WriteTag(ch, wire.TagList); err != nil {
		return nil, err
	}
	if err := wire.WriteString(ch, token); err != nil {
		return nil, err
	}

	names, err := wire.ReadList(ch)
	if err != nil {
		return nil, rejected(err)
	}
	return names, nil
}

// awaitClose waits for the server to end an upload. A clean close means the
// file was stored; a reset means the server dropped the request unread.
func awaitClose(ch transport.Channel) error {
	b, err := ch.RecvSome(1)
	switch {
	case errors.Is(err, transport.ErrPeerClosed):
		return nil
	case err != nil:
		return uploadRejected(err)
	}
	return fmt.Errorf("%w: unexpected %d byte response to upload", ErrRejected, len(b))
}

// uploadRejected maps any channel failure during an upload to ErrRejected.
// The server answers a bad token or name by closing mid-request, which the
// client sees as a broken pipe or a reset rather than a clean EOF.
func uploadRejected(err error) error {
	var chErr *transport.ChannelError
	if errors.As(err, &chErr) || errors.Is(err, transport.ErrPeerClosed) {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return err
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophdrop/internal/common"
	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/server/storage"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/wire"
)

func readCredentials(ch transport.Channel) (string, string, error) {
	username, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", "", fmt.Errorf("read username: %w", err)
	}
	password, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return username, password, nil
}

func (d *Dispatcher) handleCreateUser(ctx context.Context, ch transport.Channel, log logging.Logger) error {
	username, password, err := readCredentials(ch)
	if err != nil {
		return err
	}

	feedback := FeedbackUserCreated
	if err := d.auth.Register(ctx, username, password); err != nil {
		feedback = FeedbackCreateUserFailed
		if errors.Is(err, common.ErrorAlreadyExists) {
			log.Info(ctx, "username taken", "username", username)
		} else {
			log.Error(ctx, "register failed", "username", username, "error", err)
		}
	} else {
		log.Info(ctx, "user created", "username", username)
	}

	return wire.WriteString(ch, feedback)
}

func (d *Dispatcher) handleLogin(ctx context.Context, ch transport.Channel, log logging.Logger) error {
	username, password, err := readCredentials(ch)
	if err != nil {
		return err
	}

	token, err := d.auth.Login(ctx, username, password)
	if err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) {
			log.Error(ctx, "login failed", "username", username, "error", err)
		} else {
			log.Info(ctx, "login rejected", "username", username)
		}
		return wire.WriteString(ch, FeedbackLoginFailed)
	}

	if err := wire.WriteString(ch, FeedbackLoginSuccessful); err != nil {
		return err
	}
	return wire.WriteString(ch, token)
}

func (d *Dispatcher) handleLogout(ctx context.Context, ch transport.Channel, _ logging.Logger) error {
	token, err := wire.ReadString(ch, wire.MaxCredentialSize)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if err := d.auth.Logout(ctx, token); err != nil {
		return err
	}
	return wire.WriteString(ch, FeedbackLoggedOut)
}

func (d *Dispatcher) handleUpload(ctx context.Context, ch transport.Channel, log logging.Logger) error {
	userID, err := d.authorize(ctx, ch)
	if err != nil {
		return err
	}

	name, err := wire.ReadFilename(ch)
	if err != nil {
		return fmt.Errorf("read filename: %w", err)
	}
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	size, err := wire.ReadFileSize(ch)
	if err != nil {
		return fmt.Errorf("read size: %w", err)
	}

	w, err := d.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	var received uint64
	for received < size {
		want := uint64(ChunkSize)
		if rest := size - received; rest < want {
			want = rest
		}
		chunk, err := ch.RecvSome(int(want))
		if err != nil {
			_ = w.Abort()
			d.metrics.IncompleteTransfers.Add(ctx, 1)
			log.Warn(ctx, "upload incomplete",
				"file", name, "expected", size, "received", received, "error", err)
			return fmt.Errorf("%w: %d of %d bytes", ErrTransferIncomplete, received, size)
		}
		if _, err := w.Write(chunk); err != nil {
			_ = w.Abort()
			return fmt.Errorf("write %s: %w", name, err)
		}
		received += uint64(len(chunk))
		d.metrics.BytesReceived.Add(ctx, int64(len(chunk)))
	}

	if err := w.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Info(ctx, "file stored", "file", name, "size", size, "user_id", userID)
	return nil
}

func (d *Dispatcher) handleDownload(ctx context.Context, ch transport.Channel, log logging.Logger) error {
	userID, err := d.authorize(ctx, ch)
	if err != nil {
		return err
	}

	name, err := wire.ReadFilename(ch)
	if err != nil {
		return fmt.Errorf("read filename: %w", err)
	}

	rc, size, err := d.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	if err := wire.WriteFileSize(ch, uint64(size)); err != nil {
		return err
	}

	buf := make([]byte, ChunkSize)
	var sent int64
	for sent < size {
		n, err := rc.Read(buf)
		if n > 0 {
			if int64(n) > size-sent {
				n = int(size - sent)
			}
			if err := ch.SendExact(buf[:n]); err != nil {
				return err
			}
			sent += int64(n)
			d.metrics.BytesSent.Add(ctx, int64(n))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
	}

	if sent < size {
		d.metrics.IncompleteTransfers.Add(ctx, 1)
		return fmt.Errorf("%w: %s shrank to %d of %d bytes", ErrTransferIncomplete, name, sent, size)
	}

	log.Info(ctx, "file sent", "file", name, "size", size, "user_id", userID)
	return nil
}

func (d *Dispatcher) handleList(ctx context.Context, ch transport.Channel, log logging.Logger) error {
	if _, err := d.authorize(ctx, ch); err != nil {
		return err
	}

	names, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(names) > wire.MaxListEntries {
		log.Warn(ctx, "list truncated", "total", len(names), "sent", wire.MaxListEntries)
		names = names[:wire.MaxListEntries]
	}
	return wire.WriteList(ch, names)
}

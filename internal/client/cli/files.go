package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrop/internal/client/client"
	"github.com/dmitrijs2005/gophdrop/internal/common"
)

// Send uploads the local file at path.
func (a *App) Send(ctx context.Context, path string) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}

	n, err := a.driver.Upload(ctx, a.token, path)
	if err != nil {
		if errors.Is(err, client.ErrRejected) {
			return fmt.Errorf("upload of %s was refused (invalid name or expired session): %w", path, err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Sent %s (%d bytes)\n", path, n)
	return nil
}

// Get downloads name into the configured download directory.
func (a *App) Get(ctx context.Context, name string) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}

	path, n, err := a.driver.Download(ctx, a.token, name)
	if err != nil {
		if errors.Is(err, client.ErrRejected) {
			return fmt.Errorf("%s is not available (missing file or expired session): %w", name, err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, n)
	return nil
}

// List prints the files stored on the server. A rejected list means the
// session is gone, so the local token is dropped.
func (a *App) List(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}

	names, err := a.driver.List(ctx, a.token)
	if err != nil {
		if errors.Is(err, client.ErrRejected) {
			_ = a.clearToken(ctx)
			return fmt.Errorf("session expired, please login again: %w", err)
		}
		return err
	}

	if len(names) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	return nil
}

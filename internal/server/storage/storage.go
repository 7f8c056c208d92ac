// Package storage persists uploaded files under the names clients give them.
// There is no per-user namespace: every authenticated user sees the same set
// of files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophdrop/internal/filex"
)

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid file name")

// Writer receives the bytes of one upload. Exactly one of Commit or Abort
// must be called.
type Writer interface {
	io.Writer
	// Commit finalises a complete upload.
	Commit() error
	// Abort ends an upload that stopped short. What remains of the data is
	// backend specific.
	Abort() error
}

type Storage interface {
	// Create starts writing name, replacing any existing file.
	Create(ctx context.Context, name string) (Writer, error)
	// Open returns the content of name and its size, or common.ErrorNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// List returns every stored name in lexical order.
	List(ctx context.Context) ([]string, error)
}

// ValidateName rejects names that could escape the storage root.
func ValidateName(name string) error {
	if !filex.IsSingleElement(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

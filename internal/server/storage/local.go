package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dmitrijs2005/gophdrop/internal/common"
	"github.com/dmitrijs2005/gophdrop/internal/filex"
)

// LocalStorage keeps files flat in a single directory.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	dir, err := filex.EnsureSubdDir(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	return &LocalStorage{root: dir}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) Create(_ context.Context, name string) (Writer, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &localWriter{f: f}, nil
}

func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ValidateName(name); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, common.ErrorNotFound
		}
		return nil, 0, fmt.Errorf("open %s: %w", name, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", name, err)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, common.ErrorNotFound
	}
	return f, fi.Size(), nil
}

func (s *LocalStorage) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// localWriter leaves whatever was written on disk when aborted.
type localWriter struct {
	f *os.File
}

func (w *localWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *localWriter) Commit() error { return w.f.Close() }

func (w *localWriter) Abort() error { return w.f.Close() }

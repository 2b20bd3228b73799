// Package filesystem stores blobs as files below a root directory.
package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Store maps key "a/b.bin" to <Root>/a/b.bin. Directories are created on
// write only.
type Store struct {
	Root string
}

// New returns a store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

var _ storage.BlobStore = (*Store)(nil)

func (s *Store) Name() string { return "local" }

// Path returns the file path of key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(s.Path(key))
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, apperrors.Wrap(err, apperrors.CodeCacheRead, "failed to stat blob").WithDetail(key)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.New(apperrors.CodeObjectNotFound, "blob not found").WithDetail(key)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheRead, "failed to read blob").WithDetail(key)
	}
	return data, nil
}

// Put writes data to a temporary file next to the target and renames it into
// place, so readers never observe a partial blob.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to create blob directory").WithDetail(key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to create temporary blob").WithDetail(key)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to write blob").WithDetail(key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to close blob").WithDetail(key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to commit blob").WithDetail(key)
	}
	return nil
}

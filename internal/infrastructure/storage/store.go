// Package storage defines the blob store used to cache processed datasets.
package storage

import (
	"context"
	"strings"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// BlobStore is a flat key/value store of immutable blobs. Keys use forward
// slashes regardless of backend.
type BlobStore interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns an error with CodeObjectNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Release gives up a lock obtained from a Locker.
type Release func(ctx context.Context) error

// Locker is implemented by shared stores that can serialize writers of a key
// across processes. Lock blocks until the lock is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Release, error)
}

// ValidateKey rejects empty keys, absolute keys and keys escaping the store root.
func ValidateKey(key string) error {
	if key == "" {
		return apperrors.New(apperrors.CodeInternal, "empty blob key")
	}
	if strings.HasPrefix(key, "/") {
		return apperrors.New(apperrors.CodeInternal, "blob key must be relative").WithDetail(key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return apperrors.New(apperrors.CodeInternal, "blob key escapes store root").WithDetail(key)
		}
	}
	return nil
}

// JoinKey joins a prefix and key with a single slash.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

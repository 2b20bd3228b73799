package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

const noSuchKey = "NoSuchKey"

// Store keeps blobs as objects named <prefix>/<key> in one bucket.
type Store struct {
	api    ObjectAPI
	config Config
	logger logging.Logger
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore wraps an existing client. It does not touch the network.
func NewStore(api ObjectAPI, cfg Config, log logging.Logger) *Store {
	applyDefaults(&cfg)
	return &Store{api: api, config: cfg, logger: logging.OrNop(log).Named("minio")}
}

func (s *Store) Name() string { return "minio" }

// ObjectName returns the object name that backs key.
func (s *Store) ObjectName(key string) string {
	return storage.JoinKey(s.config.Prefix, key)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	_, err := s.api.StatObject(ctx, s.config.Bucket, s.ObjectName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CodeCacheRead, "failed to stat object").WithDetail(s.ObjectName(key))
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	name := s.ObjectName(key)
	obj, err := s.api.GetObject(ctx, s.config.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readError(err, name)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readError(err, name)
	}
	return data, nil
}

func (s *Store) readError(err error, name string) error {
	if minio.ToErrorResponse(err).Code == noSuchKey {
		return errors.New(errors.CodeObjectNotFound, "object not found").WithDetail(name)
	}
	return errors.Wrap(err, errors.CodeCacheRead, "failed to download object").WithDetail(name)
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	name := s.ObjectName(key)
	info, err := s.api.PutObject(ctx, s.config.Bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheWrite, "upload failed").WithDetail(name)
	}
	s.logger.Debug("uploaded object",
		logging.String("bucket", s.config.Bucket),
		logging.String("object", name),
		logging.Int64("size", info.Size))
	return nil
}

package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// ObjectAPI is the subset of the MinIO client the store needs.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	// GetObject returns the object body; a missing object surfaces as a
	// NoSuchKey error response, either here or on the first read.
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// Config selects the bucket and key prefix holding processed datasets.
type Config struct {
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl" yaml:"use_ssl"`
	Region          string        `mapstructure:"region" yaml:"region"`
	Bucket          string        `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string        `mapstructure:"prefix" yaml:"prefix"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultBucket is used when Config.Bucket is empty.
const DefaultBucket = "shiftgraph-datasets"

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

// sdkClient adapts *minio.Client to ObjectAPI.
type sdkClient struct {
	*minio.Client
}

func (c sdkClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Connect dials the server described by cfg and returns a store whose bucket
// is known to exist.
func Connect(ctx context.Context, cfg Config, log logging.Logger) (*Store, error) {
	applyDefaults(&cfg)
	if cfg.Endpoint == "" {
		return nil, errors.InvalidConfig("cache.minio.endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	s := NewStore(sdkClient{client}, cfg, log)
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("minio store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return s, nil
}

// EnsureBucket creates the configured bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to check bucket existence").WithDetail(s.config.Bucket)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{Region: s.config.Region}); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to create bucket").WithDetail(s.config.Bucket)
	}
	s.logger.Info("created bucket", logging.String("bucket", s.config.Bucket))
	return nil
}

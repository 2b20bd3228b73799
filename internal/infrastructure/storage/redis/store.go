// Package redis stores processed datasets in Redis so that several machines
// can share one cache, and serializes their builds with a lock per key.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Config selects the server and key namespace holding processed datasets.
type Config struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Username     string        `mapstructure:"username" yaml:"username"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	Prefix       string        `mapstructure:"prefix" yaml:"prefix"`
	TLSEnabled   bool          `mapstructure:"tls_enabled" yaml:"tls_enabled"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	// TTL expires cached datasets; zero keeps them forever.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// LockTTL bounds how long a crashed builder can hold a key's lock.
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	// LockWait bounds how long Lock waits for another builder.
	LockWait time.Duration `mapstructure:"lock_wait" yaml:"lock_wait"`
}

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "shiftgraph"

func applyDefaults(cfg *Config) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		// processed datasets can be tens of megabytes
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.LockWait == 0 {
		cfg.LockWait = 30 * time.Minute
	}
}

// Store keeps each blob as a string value under <prefix>:blob:<key>.
type Store struct {
	rdb    redis.UniversalClient
	config Config
	logger logging.Logger
}

var (
	_ storage.BlobStore = (*Store)(nil)
	_ storage.Locker    = (*Store)(nil)
)

// NewStore wraps an existing client. It does not touch the network.
func NewStore(rdb redis.UniversalClient, cfg Config, log logging.Logger) *Store {
	applyDefaults(&cfg)
	return &Store{rdb: rdb, config: cfg, logger: logging.OrNop(log).Named("redis")}
}

// Connect dials the server described by cfg and pings it.
func Connect(ctx context.Context, cfg Config, log logging.Logger) (*Store, error) {
	applyDefaults(&cfg)
	if cfg.Addr == "" {
		return nil, apperrors.InvalidConfig("cache.redis.addr is required")
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeStoreUnavailable, "redis connection failed").WithDetail(cfg.Addr)
	}

	s := NewStore(rdb, cfg, log)
	s.logger.Info("redis store connected",
		logging.String("addr", cfg.Addr),
		logging.Int("db", cfg.DB),
		logging.String("prefix", s.config.Prefix))
	return s, nil
}

func (s *Store) Name() string { return "redis" }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// BlobKey returns the redis key that backs key.
func (s *Store) BlobKey(key string) string {
	return s.config.Prefix + ":blob:" + key
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, s.BlobKey(key)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeCacheRead, "failed to check key").WithDetail(s.BlobKey(key))
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, s.BlobKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.New(apperrors.CodeObjectNotFound, "blob not found").WithDetail(s.BlobKey(key))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheRead, "failed to read blob").WithDetail(s.BlobKey(key))
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.BlobKey(key), data, s.config.TTL).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to write blob").WithDetail(s.BlobKey(key))
	}
	s.logger.Debug("stored blob", logging.String("key", s.BlobKey(key)), logging.Int("bytes", len(data)))
	return nil
}

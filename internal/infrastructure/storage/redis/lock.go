package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// lockRetryDelay is the pause between SETNX attempts.
var lockRetryDelay = 100 * time.Millisecond

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// LockKey returns the redis key of the lock guarding key.
func (s *Store) LockKey(key string) string {
	return s.config.Prefix + ":lock:" + key
}

// mutex is a single-owner lock identified by a random token. A watchdog
// keeps extending it while held.
type mutex struct {
	rdb    redis.UniversalClient
	key    string
	token  string
	ttl    time.Duration
	logger logging.Logger

	stop chan struct{}
	done chan struct{}
}

// Lock acquires the build lock for key, waiting at most LockWait.
func (s *Store) Lock(ctx context.Context, key string) (storage.Release, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	m := &mutex{
		rdb:    s.rdb,
		key:    s.LockKey(key),
		token:  uuid.NewString(),
		ttl:    s.config.LockTTL,
		logger: s.logger,
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.LockWait)
	defer cancel()

	waited := false
	for {
		ok, err := s.rdb.SetNX(ctx, m.key, m.token, m.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStoreUnavailable, "failed to set lock").WithDetail(m.key)
		}
		if ok {
			break
		}
		if !waited {
			s.logger.Info("waiting for build lock", logging.String("lock", m.key))
			waited = true
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeLockNotAcquired, "timed out waiting for build lock").WithDetail(m.key)
		case <-time.After(lockRetryDelay):
		}
	}

	m.startWatchdog()
	s.logger.Debug("acquired build lock", logging.String("lock", m.key))
	return m.release, nil
}

func (m *mutex) extend(ctx context.Context) (bool, error) {
	res, err := extendScript.Run(ctx, m.rdb, []string{m.key}, m.token, m.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *mutex) release(ctx context.Context) error {
	m.stopWatchdog()
	res, err := unlockScript.Run(ctx, m.rdb, []string{m.key}, m.token).Int64()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStoreUnavailable, "failed to release lock").WithDetail(m.key)
	}
	if res == 0 {
		return apperrors.New(apperrors.CodeLockNotAcquired, "lock not held by this owner").WithDetail(m.key)
	}
	return nil
}

func (m *mutex) startWatchdog() {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	interval := m.ttl / 3
	if interval <= 0 {
		interval = m.ttl
	}
	go m.watchdog(interval)
}

func (m *mutex) stopWatchdog() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}

func (m *mutex) watchdog(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ok, err := m.extend(context.Background())
			if err != nil {
				m.logger.Error("watchdog failed to extend lock", logging.String("lock", m.key), logging.Err(err))
				return
			}
			if !ok {
				m.logger.Warn("watchdog lost lock", logging.String("lock", m.key))
				return
			}
		}
	}
}

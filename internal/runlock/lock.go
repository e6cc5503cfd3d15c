// Package runlock keeps two runs from writing the same warehouse at once.
package runlock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
	"github.com/angelmondragon/sparkify-dwh/pkg/redis"
	"github.com/google/uuid"
)

const defaultLockTTL = 6 * time.Hour

// Lock coordinates exclusive warehouse runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements Lock using Redis SETNX + TTL.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Key returns the redis key the lock guards.
func (l *RedisLock) Key() string { return l.key }

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		l.owner = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}

// NoopLock always succeeds. Used when no redis is configured.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context) error         { return nil }

// WarehouseKey derives the lock key from the driver and the warehouse
// identity (DSN, or dataset for BigQuery). The identity is hashed so
// credentials never reach redis.
func WarehouseKey(prefix string, wh config.WarehouseConfig) string {
	identity := wh.DSN
	if wh.NormalizedDriver() == config.DriverBigQuery {
		identity = wh.Schema
	}
	sum := sha256.Sum256([]byte(identity))
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "dwh:run-lock"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, wh.NormalizedDriver(), hex.EncodeToString(sum[:6]))
}

// Acquire takes the lock or fails with a conflict when another run holds it.
func Acquire(ctx context.Context, lock Lock) error {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring run lock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "another run holds the warehouse lock")
	}
	return nil
}

// Open returns a redis lock for the configured warehouse, or a NoopLock
// with a warning when redis is not configured. The returned closer releases
// the redis connection.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Lock, func() error, error) {
	if !cfg.Redis.Enabled() {
		logg.Warn(ctx, "redis not configured, running without a warehouse lock")
		return NoopLock{}, func() error { return nil }, nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "connecting redis")
	}
	lock, err := NewRedisLock(client, WarehouseKey(cfg.Lock.KeyPrefix, cfg.Warehouse), cfg.Lock.TTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock, client.Close, nil
}

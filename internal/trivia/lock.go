package trivia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another caller owns the lock.
var ErrLockHeld = errors.New("lock already held")

// Locker serializes contest starts across bot replicas.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func() error, err error)
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker implements Locker with SET NX and a compare-and-delete release.
type RedisLocker struct {
	redis *redis.Client
}

func NewRedisLocker(redis *redis.Client) *RedisLocker {
	return &RedisLocker{redis: redis}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func() error, error) {
	lockValue := uuid.NewString()

	acquired, err := l.redis.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		return releaseScript.Run(context.WithoutCancel(ctx), l.redis, []string{key}, lockValue).Err()
	}
	return unlock, nil
}

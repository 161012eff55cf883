package trivia

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "trivia:start:srv", time.Minute)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "trivia:start:srv", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, unlock())
	assert.False(t, mr.Exists("trivia:start:srv"))

	again, err := locker.Lock(ctx, "trivia:start:srv", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again())
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client)

	unlock, err := locker.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)

	// Our lease expired and another replica took the lock.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("k", "other-owner"))

	require.NoError(t, unlock())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}

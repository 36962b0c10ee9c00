package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	l := NewKeyed()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "pocket-a")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			_ = release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.size(), "slots must be dropped once idle")
}

func TestKeyedHonoursContext(t *testing.T) {
	l := NewKeyed()
	release, err := l.Lock(context.Background(), "pocket-a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "pocket-a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()), "double release is a no-op")

	release, err = l.Lock(context.Background(), "pocket-a")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestAcquireOppositeOrdersDoNotDeadlock(t *testing.T) {
	l := NewKeyed()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys := []string{"a", "b"}
			if i%2 == 1 {
				keys = []string{"b", "a"}
			}
			release, err := Acquire(ctx, l, keys...)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			_ = release(ctx)
		}(i)
	}
	wg.Wait()
	require.NoError(t, ctx.Err())
}

func TestAcquireDeduplicatesKeys(t *testing.T) {
	l := NewKeyed()
	ctx := context.Background()

	release, err := Acquire(ctx, l, "a", "a")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestAcquireReleasesOnFailure(t *testing.T) {
	l := NewKeyed()
	blocker, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, l, "a", "b")
	require.Error(t, err)

	// "a" must be free again.
	release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
	require.NoError(t, blocker(context.Background()))
}

func newRedisLocker(t *testing.T, ttl, wait time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, ttl, wait), mr
}

func TestRedisLockAndRelease(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Lock(ctx, "pocket-a")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKeyPrefix+"pocket-a"))

	_, err = l.Lock(ctx, "pocket-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(redisKeyPrefix+"pocket-a"))

	release, err = l.Lock(ctx, "pocket-a")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisReleaseAfterExpiryReportsLoss(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Lock(ctx, "pocket-a")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	// Someone else takes the expired lock.
	other, err := l.Lock(ctx, "pocket-a")
	require.NoError(t, err)

	err = release(ctx)
	assert.ErrorIs(t, err, ErrLockLost)
	require.NoError(t, other(ctx))
}

func TestRedisAcquireTwoKeys(t *testing.T) {
	l, _ := newRedisLocker(t, time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	release, err := Acquire(ctx, l, "b", "a")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, release(ctx))
}

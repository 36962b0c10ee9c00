package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "lock:"
	unlockScript   = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
)

var errHeld = errors.New("lock held")

// Redis is a Locker shared by every process pointed at the same Redis. A lock
// is a key holding a random token; only the holder of the token may delete it.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis builds a Redis locker. ttl bounds how long a crashed holder can
// block an account; wait bounds how long Lock polls for a busy key.
func NewRedis(client redis.UniversalClient, ttl, wait time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, wait: wait}
}

// Lock polls SETNX with exponential backoff until the key is free, the wait
// budget is spent or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (Release, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 5 * time.Millisecond
	eb.MaxInterval = 100 * time.Millisecond
	eb.MaxElapsedTime = r.wait

	err := backoff.Retry(func() error {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errHeld
		}
		return nil
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		if errors.Is(err, errHeld) {
			return nil, fmt.Errorf("lock %s: %w", key, ErrNotAcquired)
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			relErr = r.unlock(ctx, redisKey, token)
		})
		return relErr
	}, nil
}

func (r *Redis) unlock(ctx context.Context, redisKey, token string) error {
	res, err := r.client.Eval(ctx, unlockScript, []string{redisKey}, token).Result()
	if err != nil {
		return err
	}
	if res == int64(0) {
		return fmt.Errorf("unlock %s: %w", redisKey, ErrLockLost)
	}
	return nil
}

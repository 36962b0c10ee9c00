// Package lock serializes mutations per key (pocket id, bill id).
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotAcquired is returned when a lock could not be taken within the wait budget.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrLockLost is returned on release when the lock expired or was taken over.
	ErrLockLost = errors.New("lock lost")
)

// Release gives a held lock back. Calling it more than once is a no-op.
type Release func(ctx context.Context) error

// Locker hands out exclusive locks by key.
type Locker interface {
	Lock(ctx context.Context, key string) (Release, error)
}

// Acquire locks all keys in ascending order, skipping duplicates, so that two
// callers locking overlapping sets can never deadlock. If any lock fails the
// ones already held are released before returning.
func Acquire(ctx context.Context, l Locker, keys ...string) (Release, error) {
	ordered := uniqueSorted(keys)
	held := make([]Release, 0, len(ordered))

	releaseAll := func(ctx context.Context) error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		held = held[:0]
		return errors.Join(errs...)
	}

	for _, key := range ordered {
		release, err := l.Lock(ctx, key)
		if err != nil {
			if rerr := releaseAll(context.WithoutCancel(ctx)); rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		held = append(held, release)
	}
	return releaseAll, nil
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

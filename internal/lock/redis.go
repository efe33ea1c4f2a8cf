package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Scope sections are short, so a contended acquire polls briefly before
// giving up with ErrLockNotAcquired.
const (
	acquireRetryInterval = 50 * time.Millisecond
	acquireWait          = 2 * time.Second
)

type redisScopeLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScopeLocker creates a locker that uses a per-scope Redis key, for
// deployments running more than one API instance against the same store.
func NewRedisScopeLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScopeLocker{client: client, ttl: ttl}
}

func (l *redisScopeLocker) WithLock(ctx context.Context, scope Scope, fn func(ctx context.Context) error) error {
	key := "lock:queue:" + scope.Key()
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

func (l *redisScopeLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.NewTimer(acquireWait)
	defer deadline.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire scope lock: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrLockNotAcquired
		case <-time.After(acquireRetryInterval):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScopeLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release scope lock: %w", err)
	}
	return nil
}

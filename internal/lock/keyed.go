package lock

import (
	"context"
	"sync"
)

// KeyedLocker is the in-process Locker: one mutex per scope key, created on
// first use. Suitable for a single API instance; multi-instance deployments
// use the Redis locker instead.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*scopeLock)}
}

func (l *KeyedLocker) WithLock(ctx context.Context, scope Scope, fn func(ctx context.Context) error) error {
	key := scope.Key()

	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &scopeLock{}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	defer func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

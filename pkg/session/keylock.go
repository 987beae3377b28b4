package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// keyLock serializes session construction per client without busy polling.
// Each key gets a one-slot channel acting as a mutex; waiters block on the
// send, so different keys never contend with each other.
type keyLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{slots: make(map[string]chan struct{})}
}

func (l *keyLock) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Acquire takes the lock for key, waiting at most timeout. The returned
// release function must be called exactly once, even on error paths.
func (l *keyLock) Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), err error) {
	ch := l.slot(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, fmt.Errorf("acquire lock for %q after %s: %w", key, timeout, ErrLockTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire lock for %q: %w", key, ctx.Err())
	}
}

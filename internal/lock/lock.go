// Package lock serializes read-modify-write cycles on cart sessions.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errNoCallback = errors.New("lock: callback not provided")

// Locker runs fn while holding an exclusive lock on key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process Locker. Slots are reference counted so idle keys do not
// accumulate. The ttl argument is ignored.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLocal constructs a LocalLocker.
func NewLocal() *LocalLocker {
	return &LocalLocker{slots: map[string]*slot{}}
}

// WithLock implements Locker. It returns ctx.Err() when the context ends before the
// lock is acquired.
func (l *LocalLocker) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errNoCallback
	}
	s := l.acquire(key)
	defer l.release(key, s)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.ch }()
	return fn(ctx)
}

func (l *LocalLocker) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = map[string]*slot{}
	}
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Package lock provides keyed in-process mutual exclusion.
// The arcade uses it to run one game per user at a time and the
// scheduler uses it to skip a tick while the previous run is still going.
package lock

import (
	"context"
	"sync"
	"time"
)

// KeyLock hands out one mutex per key. Each mutex is a one-slot channel so
// waiting on it can be raced against a context.
type KeyLock[K comparable] struct {
	locks sync.Map // map[K]chan struct{}
}

// New creates an empty KeyLock.
func New[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{}
}

func (kl *KeyLock[K]) slot(key K) chan struct{} {
	if v, ok := kl.locks.Load(key); ok {
		return v.(chan struct{})
	}
	actual, _ := kl.locks.LoadOrStore(key, make(chan struct{}, 1))
	return actual.(chan struct{})
}

// Lock blocks until the key's lock is acquired.
func (kl *KeyLock[K]) Lock(key K) {
	kl.slot(key) <- struct{}{}
}

// Unlock releases the key's lock. Unlocking a key that is not held is a no-op.
func (kl *KeyLock[K]) Unlock(key K) {
	if v, ok := kl.locks.Load(key); ok {
		select {
		case <-v.(chan struct{}):
		default:
		}
	}
}

// TryLock acquires the lock without blocking and reports whether it did.
func (kl *KeyLock[K]) TryLock(key K) bool {
	select {
	case kl.slot(key) <- struct{}{}:
		return true
	default:
		return false
	}
}

// LockWithTimeout waits at most timeout for the lock.
// Returns ErrLockTimeout when the wait expires and ctx.Err() when ctx ends first.
func (kl *KeyLock[K]) LockWithTimeout(ctx context.Context, key K, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case kl.slot(key) <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithLock executes fn while holding the key's lock.
func (kl *KeyLock[K]) WithLock(key K, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the key's lock, waiting at most
// timeout to acquire it.
func (kl *KeyLock[K]) WithLockContext(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	if err := kl.LockWithTimeout(ctx, key, timeout); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// IsLocked reports whether the key is currently held.
// This is a point-in-time check and may change immediately after.
func (kl *KeyLock[K]) IsLocked(key K) bool {
	if v, ok := kl.locks.Load(key); ok {
		return len(v.(chan struct{})) == 1
	}
	return false
}

package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentUpdatesSerializeProperty checks that read-modify-write
// updates guarded by the same key end with the sequential result.
func TestConcurrentUpdatesSerializeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(-1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		kl := New[uuid.UUID]()
		key := uuid.New()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				balance += amount
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
	})
}

// TestWithLockFunctionProperty checks that WithLock serializes operations.
func TestWithLockFunctionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		step := rapid.Int64Range(1, 100).Draw(t, "step")

		kl := New[string]()
		var total int64

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = kl.WithLock("job", func() error {
					total += step
					return nil
				})
			}()
		}
		wg.Wait()

		if total != int64(numOps)*step {
			t.Fatalf("total mismatch: expected %d, got %d", int64(numOps)*step, total)
		}
	})
}

// TestIndependentKeysProperty checks that distinct keys do not interfere.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := New[int]()
		counters := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(key int) {
					defer wg.Done()
					kl.Lock(key)
					defer kl.Unlock(key)
					counters[key]++
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d, got %d", k, opsPerKey, c)
			}
		}

		// Holding one key never blocks another
		kl.Lock(0)
		if !kl.TryLock(1) {
			t.Fatal("key 1 should be free while key 0 is held")
		}
		kl.Unlock(1)
		kl.Unlock(0)
	})
}

// TestTryLockSingleHolderProperty checks that concurrent TryLock callers
// never hold the same key at once.
func TestTryLockSingleHolderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(5, 20).Draw(t, "attempts")

		kl := New[string]()
		var holders, maxHolders, successes atomic.Int32

		var wg sync.WaitGroup
		wg.Add(attempts)
		start := make(chan struct{})
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if kl.TryLock("k") {
					successes.Add(1)
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					kl.Unlock("k")
				}
			}()
		}
		close(start)
		wg.Wait()

		if successes.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed")
		}
		if maxHolders.Load() > 1 {
			t.Fatalf("key held by %d goroutines at once", maxHolders.Load())
		}
		if !kl.TryLock("k") {
			t.Fatal("lock should be available after all holders released it")
		}
		kl.Unlock("k")
	})
}

// TestLockUnlockSymmetryProperty checks that balanced Lock/Unlock cycles
// leave the key free.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cycles := rapid.IntRange(1, 50).Draw(t, "cycles")
		key := fmt.Sprintf("k%d", rapid.IntRange(0, 1000).Draw(t, "key"))

		kl := New[string]()
		for i := 0; i < cycles; i++ {
			kl.Lock(key)
			kl.Unlock(key)
		}

		if kl.IsLocked(key) {
			t.Fatal("lock should be free after symmetric cycles")
		}
	})
}

// ============================================================================
// Timeout behaviour
// ============================================================================

func TestLockWithTimeout(t *testing.T) {
	kl := New[uuid.UUID]()
	key := uuid.New()
	ctx := context.Background()

	require.NoError(t, kl.LockWithTimeout(ctx, key, time.Second))
	assert.True(t, kl.IsLocked(key))

	err := kl.LockWithTimeout(ctx, key, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = kl.LockWithTimeout(cancelled, key, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	kl.Unlock(key)
	assert.False(t, kl.IsLocked(key))
}

func TestWithLockContext(t *testing.T) {
	kl := New[string]()
	ctx := context.Background()

	called := false
	err := kl.WithLockContext(ctx, "job", time.Second, func() error {
		called = true
		assert.True(t, kl.IsLocked("job"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, kl.IsLocked("job"))

	kl.Lock("job")
	defer kl.Unlock("job")
	err = kl.WithLockContext(ctx, "job", 10*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestUnlockWithoutLockIsNoop(t *testing.T) {
	kl := New[string]()
	kl.Unlock("never-locked")
	assert.True(t, kl.TryLock("never-locked"))
}

package locked

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// spinsBeforeYield bounds how long Lock busy-waits before giving the
// scheduler a chance to run the holder.
const spinsBeforeYield = 64

// SpinLock is a busy-wait mutual exclusion lock. The zero value is unlocked.
// It makes no fairness guarantee and is not reentrant.
type SpinLock struct {
	locked atomic.Bool
}

// Lock spins until the lock is acquired.
func (l *SpinLock) Lock() {
	spins := 0
	for !l.TryLock() {
		spins++
		if spins == spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking a free lock panics.
func (l *SpinLock) Unlock() {
	if !l.locked.CompareAndSwap(true, false) {
		panic("locked: unlock of unlocked SpinLock")
	}
}

// Locked reports whether the lock is currently held by anyone.
func (l *SpinLock) Locked() bool { return l.locked.Load() }

var _ sync.Locker = (*SpinLock)(nil)

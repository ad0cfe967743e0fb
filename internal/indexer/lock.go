package indexer

import (
	"sync"
	"sync/atomic"
)

// indexLock provides non-blocking lock semantics per project root.
// A second index request for a root that is already being indexed is
// rejected immediately instead of queueing.
type indexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking
func (l *indexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Only the acquirer may call it.
func (l *indexLock) Release() {
	l.state.Store(0)
}

// lockSet hands out one indexLock per project root
type lockSet struct {
	locks sync.Map // root -> *indexLock
}

func (s *lockSet) forRoot(root string) *indexLock {
	actual, _ := s.locks.LoadOrStore(root, &indexLock{})
	return actual.(*indexLock)
}

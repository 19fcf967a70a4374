package indexer

import "sync/atomic"

// IndexLock guards an Indexer against overlapping runs. Unlike a mutex it
// never blocks: a caller that loses the race gets false and reports
// ErrIndexingInProgress.
type IndexLock struct {
	held atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *IndexLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.held.Store(false)
}

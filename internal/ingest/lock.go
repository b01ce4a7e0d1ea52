package ingest

import "golang.org/x/sync/semaphore"

// IngestLock admits one ingest run at a time. A second run fails fast
// with ErrIngestInProgress instead of queueing behind the first.
type IngestLock struct {
	sem *semaphore.Weighted
}

func newIngestLock() *IngestLock {
	return &IngestLock{sem: semaphore.NewWeighted(1)}
}

// TryAcquire reports whether the lock was taken.
func (l *IngestLock) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release must only follow a successful TryAcquire.
func (l *IngestLock) Release() {
	l.sem.Release(1)
}

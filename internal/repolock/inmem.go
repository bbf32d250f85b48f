package repolock

import (
	"context"
	"sync"
)

// InmemLocker takes per-path locks backed by an in-process mutex table.
// Used by tests and by single-process embeddings of the engine where
// no other process could ever contend for the same repo checkout.
type InmemLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ Locker = (*InmemLocker)(nil)

// NewInmem returns an empty InmemLocker.
func NewInmem() *InmemLocker {
	return &InmemLocker{held: make(map[string]bool)}
}

// TryLock marks path as held. It returns a taxonomy.IO error if path
// is already held by a prior, not-yet-released TryLock call.
func (l *InmemLocker) TryLock(ctx context.Context, path string) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[path] {
		return nil, errContended(path)
	}
	l.held[path] = true
	return &inmemLock{locker: l, path: path}, nil
}

type inmemLock struct {
	once   sync.Once
	locker *InmemLocker
	path   string
}

func (l *inmemLock) Unlock() error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		delete(l.locker.held, l.path)
		l.locker.mu.Unlock()
	})
	return nil
}

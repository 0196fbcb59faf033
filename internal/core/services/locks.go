package services

import (
	"context"
	"sync"
)

// ProjectLocks is a set of per-project write locks that can be waited on
// with a context. Different projects never contend.
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewProjectLocks creates an empty lock set.
func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[string]chan struct{})}
}

// Acquire blocks until the project's lock is held or ctx is done.
// The returned release func is safe to call more than once.
func (l *ProjectLocks) Acquire(ctx context.Context, projectID string) (func(), error) {
	ch := l.lockFor(projectID)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *ProjectLocks) lockFor(projectID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[projectID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[projectID] = ch
	}
	return ch
}

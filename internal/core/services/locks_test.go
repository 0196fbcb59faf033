package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectLocks_Exclusive(t *testing.T) {
	locks := NewProjectLocks()
	ctx := context.Background()

	var inside, peak int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(ctx, "p1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestProjectLocks_ProjectsIndependent(t *testing.T) {
	locks := NewProjectLocks()
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "p1")
	require.NoError(t, err)
	defer release()

	other, err := locks.Acquire(ctx, "p2")
	require.NoError(t, err)
	other()
}

func TestProjectLocks_ContextCancelled(t *testing.T) {
	locks := NewProjectLocks()
	release, err := locks.Acquire(context.Background(), "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second release is a no-op

	again, err := locks.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	again()
}

// Package exec provides the task-submission abstraction spec.md §9
// asks for in place of a raw function-pointer Schedule: an Executor
// accepts fire-and-forget work, and the package default is a small
// semaphore-bounded goroutine pool shared by every DirLogger that does
// not supply its own (spec.md §6, compaction_pool).
package exec

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor runs submitted work, generally asynchronously.
type Executor interface {
	// Submit schedules fn to run. fn must not block indefinitely.
	Submit(fn func())
}

// Pool is a semaphore-bounded goroutine pool: at most n submissions
// run concurrently, the rest queue on the semaphore acquire.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a Pool that runs at most n tasks concurrently.
func NewPool(n int64) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(n)}
}

// Submit implements Executor.
func (p *Pool) Submit(fn func()) {
	go func() {
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}

var defaultPool = NewPool(4)

// Default returns the process-global Executor used when a DirLogger is
// not configured with its own compaction_pool.
func Default() Executor {
	return defaultPool
}

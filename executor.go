package pebble

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor runs the bodies of parallel tags. Go must not block the caller
// for longer than it takes to schedule fn.
type Executor interface {
	Go(fn func())
}

// GoExecutor starts one goroutine per task.
type GoExecutor struct{}

func (GoExecutor) Go(fn func()) { go fn() }

// PoolExecutor runs at most n tasks at once. Tasks beyond the limit wait
// on their own goroutine, so Go never blocks.
type PoolExecutor struct {
	sem *semaphore.Weighted
}

// NewPoolExecutor creates an executor running at most n tasks at once.
func NewPoolExecutor(n int) *PoolExecutor {
	if n < 1 {
		n = 1
	}
	return &PoolExecutor{sem: semaphore.NewWeighted(int64(n))}
}

func (p *PoolExecutor) Go(fn func()) {
	go func() {
		// Acquire only fails for a cancelled context.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}

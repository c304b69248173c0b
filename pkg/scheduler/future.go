package scheduler

import (
	"context"
	"sync"
)

// Future carries the terminal outcome of one submitted task.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture() *Future {
	return &Future{
		done: make(chan struct{}),
	}
}

func (f *Future) resolve(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the task has a terminal outcome.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task completes or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.value, f.err
	}
}

// Err returns the terminal error, or nil while the task is still in flight.
// Only the last attempt's error is retained.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Value returns the task result, or nil while the task is still in flight.
func (f *Future) Value() any {
	select {
	case <-f.done:
		return f.value
	default:
		return nil
	}
}

package html

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyFuture settles a future that was created without a producer,
// e.g. a zero Future.
var ErrEmptyFuture = errors.New("html: future has no producer")

// Future is a value computed in the background. It settles once; every
// Await after that observes the same value and error.
type Future struct {
	init  sync.Once
	done  chan struct{}
	start sync.Once
	fn    func(context.Context) (any, error)
	value any
	err   error
}

// Async starts fn immediately on its own goroutine.
func Async(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &Future{done: make(chan struct{})}
	f.start.Do(func() {})
	go f.run(ctx, fn)
	return f
}

// Lazy defers fn until the first Await. fn receives the values of the first
// awaiting context but not its cancellation, so a render that gives up
// early does not settle the future for later renders.
func Lazy(fn func(context.Context) (any, error)) *Future {
	return &Future{done: make(chan struct{}), fn: fn}
}

// Resolved returns a settled future holding v.
func Resolved(v any) *Future {
	f := &Future{done: make(chan struct{}), value: v}
	f.start.Do(func() {})
	close(f.done)
	return f
}

// Rejected returns a settled future holding err.
func Rejected(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	f.start.Do(func() {})
	close(f.done)
	return f
}

// Await blocks until the future settles or ctx is done. Giving up on ctx
// leaves the future running.
func (f *Future) Await(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := f.doneChan()
	f.start.Do(func() {
		go f.run(context.WithoutCancel(ctx), f.fn)
	})
	select {
	case <-done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.doneChan()
}

func (f *Future) doneChan() chan struct{} {
	f.init.Do(func() {
		if f.done == nil {
			f.done = make(chan struct{})
		}
	})
	return f.done
}

func (f *Future) run(ctx context.Context, fn func(context.Context) (any, error)) {
	defer close(f.doneChan())
	defer func() {
		if r := recover(); r != nil {
			f.value = nil
			f.err = fmt.Errorf("html: deferred value panicked: %v", r)
		}
	}()
	if fn == nil {
		f.err = ErrEmptyFuture
		return
	}
	f.value, f.err = fn(ctx)
}

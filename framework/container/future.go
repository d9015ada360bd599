package container

import (
	"context"
	"fmt"
)

// Future is a pending computation. Factories and lifecycle hooks return a
// *Future when their result is produced asynchronously; ResolveAsync awaits it,
// Resolve only accepts it once it has completed.
type Future struct {
	done chan struct{}
	val  any
	err  error
}

// Go runs fn on a new goroutine and returns its pending result. A panic in fn
// completes the future with an error.
//
//	c.Register(dbKey, container.WithProvider(func() *container.Future {
//	    return container.Go(ctx, func(ctx context.Context) (any, error) {
//	        return sql.Open("postgres", dsn)
//	    })
//	}))
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.val = nil
				f.err = fmt.Errorf("container: future panicked: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Completed returns a future that already holds v.
func Completed(v any) *Future {
	f := &Future{done: make(chan struct{}), val: v}
	close(f.done)
	return f
}

// Failed returns a future that already holds err.
func Failed(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done reports whether the computation has finished.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the computation finishes or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	if f.Done() {
		return f.val, f.err
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle unwraps v when it is a *Future: awaited on the suspending path,
// accepted only if complete on the blocking one.
func settle(rc *call, v any) (any, error) {
	f, ok := v.(*Future)
	if !ok {
		return v, nil
	}
	if f == nil {
		return nil, nil
	}
	if rc.async {
		return f.Await(rc.ctx)
	}
	if !f.Done() {
		return nil, ErrAsyncRequired
	}
	return f.val, f.err
}

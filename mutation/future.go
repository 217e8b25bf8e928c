package mutation

import "context"

// Future is the settled outcome of a mutation whose remote call is still
// running. By the time Done is closed the store has been committed or rolled
// back and the touched keys invalidated.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func settled[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done is closed once the mutation has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the mutation settles or ctx is done. Giving up on the
// wait does not cancel the mutation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

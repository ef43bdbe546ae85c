package loop

// A Future holds the eventual result of an asynchronous operation.
//
// Futures are not safe for concurrent use. They are completed and observed on the
// loop goroutine only; producers running elsewhere complete them through Post.
type Future[T any] struct {
	done    bool
	value   T
	err     error
	waiters []func(T, error)
}

// NewFuture creates a pending Future.
func NewFuture[T any]() *Future[T] {
	return new(Future[T])
}

// Resolved creates a Future that has already succeeded with v.
func Resolved[T any](v T) *Future[T] {
	f := new(Future[T])
	f.Resolve(v)
	return f
}

// Failed creates a Future that has already failed with err.
func Failed[T any](err error) *Future[T] {
	f := new(Future[T])
	f.Reject(err)
	return f
}

// Resolve completes the Future successfully. Later completions are ignored.
func (f *Future[T]) Resolve(v T) {
	f.complete(v, nil)
}

// Reject completes the Future with an error. Later completions are ignored.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) {
	if f.done {
		return
	}
	f.done = true
	f.value = v
	f.err = err

	waiters := f.waiters
	f.waiters = nil
	for _, w := range waiters {
		w(v, err)
	}
}

// OnComplete registers fn to run when the Future completes. If it already has, fn
// runs immediately.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	if f.done {
		fn(f.value, f.err)
		return
	}
	f.waiters = append(f.waiters, fn)
}

// Done reports whether the Future has completed.
func (f *Future[T]) Done() bool {
	return f.done
}

// Result returns the value and error of a completed Future.
func (f *Future[T]) Result() (T, error) {
	return f.value, f.err
}

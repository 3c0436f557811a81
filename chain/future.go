package chain

import (
	"context"
	"sync"

	apperrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-async"
)

// Unit is the value type of steps that carry no value.
type Unit struct{}

// Future is a pending asynchronous result that settles exactly once into an
// async.Outcome. It is the handle chains hand back from Run, and the shape
// step callbacks may return when they are themselves asynchronous.
type Future[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	outcome async.Outcome[T]
}

// NewFuture creates an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved creates a future already settled with o.
func Resolved[T any](o async.Outcome[T]) *Future[T] {
	f := NewFuture[T]()
	f.settle(o)
	return f
}

// Done returns a channel closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Peek returns the outcome and whether the future has settled, without
// blocking.
func (f *Future[T]) Peek() (async.Outcome[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome, f.settled
}

// Outcome blocks until the future settles and returns the outcome.
func (f *Future[T]) Outcome() async.Outcome[T] {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// Await blocks until the future settles or ctx is done. The error is non-nil
// only when ctx interrupted the wait; the step's own failure or cancellation
// lives inside the outcome.
func (f *Future[T]) Await(ctx context.Context) (async.Outcome[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.Outcome(), nil
	case <-ctx.Done():
		var zero async.Outcome[T]
		return zero, apperrors.Wrap(ctx.Err(), apperrors.CategoryExternal, "await interrupted").
			WithTextCode("CHAIN_AWAIT_INTERRUPTED")
	}
}

// Complete settles the future as succeeded with v. Later settles are no-ops.
func (f *Future[T]) Complete(v T) { f.settle(async.Success(v)) }

// Fail settles the future as faulted with err.
func (f *Future[T]) Fail(err error) { f.settle(async.Failure[T](err)) }

// Cancel settles the future as canceled.
func (f *Future[T]) Cancel() { f.settle(async.Canceled[T]()) }

func (f *Future[T]) settle(o async.Outcome[T]) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.outcome = o
	f.settled = true
	f.mu.Unlock()
	close(f.done)
}

// After sequences fn behind f: fn runs only once f has fully settled,
// receives f's outcome, and the future it returns is flattened one level so
// the caller never holds a pending result of a pending result. A fault or
// cancellation of the inner future propagates identically to one of the
// outer. A panic inside fn settles the result as faulted, indistinguishable
// from a returned failure.
func After[T, U any](f *Future[T], fn func(async.Outcome[T]) *Future[U]) *Future[U] {
	out := NewFuture[U]()
	go func() {
		<-f.Done()

		var inner *Future[U]
		panicked := false
		func() {
			defer func() {
				if r := recover(); r != nil {
					panicked = true
					out.Fail(async.NewPanicError(r))
				}
			}()
			inner = fn(f.Outcome())
		}()
		if panicked {
			return
		}
		if inner == nil {
			out.Fail(ErrNilFuture)
			return
		}
		<-inner.Done()
		out.settle(inner.Outcome())
	}()
	return out
}

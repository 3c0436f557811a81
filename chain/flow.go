package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-async"
)

// Flow is the value-typed continuation of a Chain: every background step
// receives the value carried by its predecessor and either consumes it,
// forwarding it unchanged, or transforms it into a new value via Map. The
// execution model is identical to Chain's.
//
// Transform steps that change the carried type are package-level functions
// (Promote, Map) because Go methods cannot introduce type parameters.
type Flow[T any] struct {
	mu sync.Mutex

	id         uuid.UUID
	marshaller async.Marshaller
	logger     async.Logger
	signal     *async.Signal
	tail       *Future[T]
	consumed   bool
	promoted   bool
}

// Promote appends a value-producing background step to c and returns the
// typed chain that carries the value forward. The untyped builder is dead
// afterward: appending to it or running it panics.
func Promote[T any](c *Chain, step func(sig *async.Signal) (T, error)) *Flow[T] {
	c.mu.Lock()
	c.ensureBuildableLocked()
	c.promoted = true
	sig := c.signal
	prev := c.tail
	f := &Flow[T]{
		id:         c.id,
		marshaller: c.marshaller,
		logger:     c.logger,
		signal:     sig,
	}
	c.mu.Unlock()

	f.tail = After(prev, func(o async.Outcome[Unit]) *Future[T] {
		if !o.IsSuccess() {
			return Resolved(async.CanceledFrom[Unit, T](o))
		}
		if sig.IsCanceled() {
			return Resolved(async.Canceled[T]())
		}
		v, err := step(sig)
		if err != nil {
			return Resolved(async.Failure[T](err))
		}
		return Resolved(async.Success(v))
	})
	return f
}

// FromValue starts a typed chain already carrying v, bound to m.
func FromValue[T any](m async.Marshaller, v T, opts ...Option) *Flow[T] {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Flow[T]{
		id:         uuid.New(),
		marshaller: m,
		logger:     async.NormalizeLogger(cfg.logger),
		tail:       Resolved(async.Success(v)),
	}
}

// ID returns the flow's diagnostic identifier, inherited from the chain it
// was promoted from.
func (f *Flow[T]) ID() uuid.UUID { return f.id }

// Then appends a background step that consumes the carried value and
// forwards it unchanged.
func (f *Flow[T]) Then(step func(sig *async.Signal, v T) error) *Flow[T] {
	return f.appendBackground(func(sig *async.Signal, v T) *Future[T] {
		if err := step(sig, v); err != nil {
			return Resolved(async.Failure[T](err))
		}
		return Resolved(async.Success(v))
	})
}

// ThenFuture appends an asynchronous background step; the returned future is
// flattened one level and its settled value replaces the carried value.
func (f *Flow[T]) ThenFuture(step func(sig *async.Signal, v T) *Future[T]) *Flow[T] {
	return f.appendBackground(step)
}

// ThenDelay appends a background step that waits d, honoring the signal, and
// forwards the carried value.
func (f *Flow[T]) ThenDelay(d time.Duration) *Flow[T] {
	return f.appendBackground(func(sig *async.Signal, v T) *Future[T] {
		return After(Delay(d, sig), func(o async.Outcome[Unit]) *Future[T] {
			if !o.IsSuccess() {
				return Resolved(async.CanceledFrom[Unit, T](o))
			}
			return Resolved(async.Success(v))
		})
	})
}

func (f *Flow[T]) appendBackground(step func(sig *async.Signal, v T) *Future[T]) *Flow[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureBuildableLocked()
	sig := f.signal
	f.tail = After(f.tail, func(o async.Outcome[T]) *Future[T] {
		if !o.IsSuccess() {
			return Resolved(o)
		}
		if sig.IsCanceled() {
			return Resolved(async.Canceled[T]())
		}
		return step(sig, o.Value())
	})
	return f
}

// ThenUI appends a thread-affine step that receives the carried value. The
// callback runs only when the predecessor succeeded, since there is no value
// to hand over otherwise, but it is posted through the marshaller either way
// so ordering against later UI steps holds. Use ThenUIOutcome for steps that
// must run on every classification.
func (f *Flow[T]) ThenUI(fn func(v T)) *Flow[T] {
	return f.appendUI(func(o async.Outcome[T]) {
		if o.IsSuccess() {
			fn(o.Value())
		}
	})
}

// ThenUIOutcome appends a thread-affine step that always runs and receives
// the predecessor's outcome, whatever its classification.
func (f *Flow[T]) ThenUIOutcome(fn func(o async.Outcome[T])) *Flow[T] {
	return f.appendUI(fn)
}

// ThenUIFuture appends an asynchronous thread-affine step. The callback is
// posted through the marshaller and the future it returns is flattened one
// level; its settled value replaces the carried value.
func (f *Flow[T]) ThenUIFuture(fn func(o async.Outcome[T]) *Future[T]) *Flow[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureBuildableLocked()
	m := f.marshaller
	f.tail = After(f.tail, func(o async.Outcome[T]) *Future[T] {
		out := NewFuture[T]()
		post(m, func() {
			defer func() {
				if r := recover(); r != nil {
					out.Fail(async.NewPanicError(r))
				}
			}()
			inner := fn(o)
			if inner == nil {
				out.Fail(ErrNilFuture)
				return
			}
			go func() {
				<-inner.Done()
				out.settle(inner.Outcome())
			}()
		})
		return out
	})
	return f
}

func (f *Flow[T]) appendUI(fn func(o async.Outcome[T])) *Flow[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureBuildableLocked()
	m := f.marshaller
	f.tail = After(f.tail, func(o async.Outcome[T]) *Future[T] {
		out := NewFuture[T]()
		post(m, func() {
			defer func() {
				if r := recover(); r != nil {
					out.Fail(async.NewPanicError(r))
				}
			}()
			fn(o)
			out.settle(o)
		})
		return out
	})
	return f
}

// Run consumes the builder and returns the pending result carrying the final
// value. Running twice, or appending after Run, panics.
func (f *Flow[T]) Run() *Future[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureBuildableLocked()
	f.consumed = true
	f.logger.Debug("chain %s: running", f.id)
	return f.tail
}

func (f *Flow[T]) ensureBuildableLocked() {
	if f.consumed {
		panic(ErrConsumed)
	}
	if f.promoted {
		panic(ErrPromoted)
	}
}

// Map appends a background step that transforms the carried value into a new
// value of a different type, returning the new typed chain. The original
// flow is dead afterward.
func Map[T, U any](f *Flow[T], step func(sig *async.Signal, v T) (U, error)) *Flow[U] {
	f.mu.Lock()
	f.ensureBuildableLocked()
	f.promoted = true
	sig := f.signal
	prev := f.tail
	out := &Flow[U]{
		id:         f.id,
		marshaller: f.marshaller,
		logger:     f.logger,
		signal:     sig,
	}
	f.mu.Unlock()

	out.tail = After(prev, func(o async.Outcome[T]) *Future[U] {
		if !o.IsSuccess() {
			return Resolved(async.CanceledFrom[T, U](o))
		}
		if sig.IsCanceled() {
			return Resolved(async.Canceled[U]())
		}
		v, err := step(sig, o.Value())
		if err != nil {
			return Resolved(async.Failure[U](err))
		}
		return Resolved(async.Success(v))
	})
	return out
}

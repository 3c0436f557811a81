package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-async"
)

// Chain builds a single linear pipeline of asynchronous steps of two kinds:
// background steps, which run off the thread-affine context and consult the
// installed cancellation signal before starting, and UI steps, which are
// always posted through the marshaller and never consult the signal, so
// cleanup work runs even after the rest of the pipeline was canceled.
//
// Steps start executing as they are appended; Run hands back the pending
// result of the whole pipeline and consumes the builder. Appending to a
// consumed or promoted builder is a caller bug and panics with a classified
// error.
type Chain struct {
	mu sync.Mutex

	id         uuid.UUID
	marshaller async.Marshaller
	logger     async.Logger
	signal     *async.Signal
	signalSet  bool
	tail       *Future[Unit]
	consumed   bool
	promoted   bool
}

// Option configures a chain at construction time.
type Option func(*config)

type config struct {
	logger async.Logger
}

// WithLogger sets the chain logger; nil normalizes to the FmtLogger fallback.
func WithLogger(l async.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New starts an empty untyped chain bound to m. A nil marshaller falls back
// to the process-wide ambient default at post time.
func New(m async.Marshaller, opts ...Option) *Chain {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Chain{
		id:         uuid.New(),
		marshaller: m,
		logger:     async.NormalizeLogger(cfg.logger),
		tail:       Resolved(async.Success(Unit{})),
	}
}

// ID returns the chain's diagnostic identifier.
func (c *Chain) ID() uuid.UUID { return c.id }

// WithCancellation installs the cancellation signal consulted by background
// steps appended after this call. The signal is installed once; a second
// install panics.
func (c *Chain) WithCancellation(sig *async.Signal) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureBuildableLocked()
	if c.signalSet {
		panic(ErrSignalInstalled)
	}
	c.signal = sig
	c.signalSet = true
	return c
}

// Then appends a background step. The step does not run when the
// predecessor faulted or was canceled, or when the signal already fired; in
// those cases the pipeline settles with the propagated classification.
func (c *Chain) Then(step func(sig *async.Signal) error) *Chain {
	return c.appendBackground(func(sig *async.Signal) *Future[Unit] {
		if err := step(sig); err != nil {
			return Resolved(async.Failure[Unit](err))
		}
		return Resolved(async.Success(Unit{}))
	})
}

// ThenFuture appends a background step that is itself asynchronous. The
// returned future is flattened one level: its fault or cancellation
// propagates exactly as a direct step failure would.
func (c *Chain) ThenFuture(step func(sig *async.Signal) *Future[Unit]) *Chain {
	return c.appendBackground(step)
}

// ThenDelay appends a background step that waits d, honoring the installed
// cancellation signal.
func (c *Chain) ThenDelay(d time.Duration) *Chain {
	return c.appendBackground(func(sig *async.Signal) *Future[Unit] {
		return Delay(d, sig)
	})
}

func (c *Chain) appendBackground(step func(sig *async.Signal) *Future[Unit]) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureBuildableLocked()
	sig := c.signal
	c.tail = After(c.tail, func(o async.Outcome[Unit]) *Future[Unit] {
		if !o.IsSuccess() {
			return Resolved(o)
		}
		if sig.IsCanceled() {
			return Resolved(async.Canceled[Unit]())
		}
		return step(sig)
	})
	return c
}

// ThenUI appends a thread-affine step. It is always posted through the
// marshaller, whatever the predecessor's classification, and passes that
// classification through unchanged unless the callback itself panics.
func (c *Chain) ThenUI(fn func()) *Chain {
	return c.appendUI(func(o async.Outcome[Unit]) {
		fn()
	})
}

// ThenUIOutcome appends a thread-affine step that receives the
// predecessor's outcome, for success/fault/cancel inspection.
func (c *Chain) ThenUIOutcome(fn func(o async.Outcome[Unit])) *Chain {
	return c.appendUI(fn)
}

// ThenUIFuture appends a thread-affine step that is itself asynchronous: the
// callback is posted through the marshaller like any UI step, and the future
// it returns is flattened one level. The pipeline does not advance until that
// future settles, but the marshaller goroutine is never blocked waiting on it.
func (c *Chain) ThenUIFuture(fn func(o async.Outcome[Unit]) *Future[Unit]) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureBuildableLocked()
	m := c.marshaller
	c.tail = After(c.tail, func(o async.Outcome[Unit]) *Future[Unit] {
		out := NewFuture[Unit]()
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
	return c
}

func (c *Chain) appendUI(fn func(o async.Outcome[Unit])) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureBuildableLocked()
	m := c.marshaller
	c.tail = After(c.tail, func(o async.Outcome[Unit]) *Future[Unit] {
		out := NewFuture[Unit]()
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
	return c
}

// Run consumes the builder and returns the pending result of the whole
// pipeline. Running twice, or appending after Run, panics.
func (c *Chain) Run() *Future[Unit] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureBuildableLocked()
	c.consumed = true
	c.logger.Debug("chain %s: running", c.id)
	return c.tail
}

func (c *Chain) ensureBuildableLocked() {
	if c.consumed {
		panic(ErrConsumed)
	}
	if c.promoted {
		panic(ErrPromoted)
	}
}

// post schedules fn through m, falling back to the ambient default.
func post(m async.Marshaller, fn func()) {
	if m == nil {
		m = async.Default()
	}
	m.Post(fn)
}

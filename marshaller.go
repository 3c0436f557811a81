package async

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-errors"
)

// Marshaller schedules callbacks onto a thread-affine execution context, e.g.
// a UI event loop. Post must not block the caller and must preserve post
// order for callbacks posted from one goroutine.
type Marshaller interface {
	Post(fn func())
}

// MarshallerFunc is an adapter that lets you use a function as a Marshaller.
type MarshallerFunc func(fn func())

// Post calls the underlying function.
func (f MarshallerFunc) Post(fn func()) { f(fn) }

// InlineMarshaller runs callbacks synchronously on the posting goroutine.
// Useful in tests and in hosts without a real thread-affine context.
type InlineMarshaller struct{}

func (InlineMarshaller) Post(fn func()) { fn() }

var (
	defaultMu         sync.RWMutex
	defaultMarshaller Marshaller
)

// SetDefault installs the process-wide ambient marshaller. Intended to be
// called once during host bootstrap, before background work starts.
func SetDefault(m Marshaller) {
	defaultMu.Lock()
	defaultMarshaller = m
	defaultMu.Unlock()
}

// Default returns the ambient marshaller, falling back to InlineMarshaller
// when none was installed.
func Default() Marshaller {
	defaultMu.RLock()
	m := defaultMarshaller
	defaultMu.RUnlock()
	if m == nil {
		return InlineMarshaller{}
	}
	return m
}

// LoopMarshaller binds a dedicated goroutine that drains posted callbacks in
// order, simulating a UI thread. Callbacks posted after Stop are dropped.
type LoopMarshaller struct {
	queue   chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	closed  atomic.Bool
	once    sync.Once
	logger  Logger
}

// LoopOption configures a LoopMarshaller.
type LoopOption func(*LoopMarshaller)

// WithLoopLogger sets the logger used to report recovered callback panics.
func WithLoopLogger(l Logger) LoopOption {
	return func(m *LoopMarshaller) {
		m.logger = l
	}
}

// WithLoopBuffer sets the queue capacity. Values below 1 are ignored.
func WithLoopBuffer(n int) LoopOption {
	return func(m *LoopMarshaller) {
		if n >= 1 {
			m.queue = make(chan func(), n)
		}
	}
}

// NewLoopMarshaller creates the marshaller and immediately starts its
// dedicated goroutine.
func NewLoopMarshaller(opts ...LoopOption) *LoopMarshaller {
	ctx, cancel := context.WithCancel(context.Background())
	m := &LoopMarshaller{
		queue:   make(chan func(), 128),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = NormalizeLogger(m.logger)

	go m.run()
	return m
}

// Post schedules fn on the dedicated goroutine. Posts after Stop are dropped.
func (m *LoopMarshaller) Post(fn func()) {
	if fn == nil || m.closed.Load() {
		return
	}
	select {
	case <-m.ctx.Done():
	case m.queue <- fn:
	}
}

// Drain blocks until every callback posted before the call has executed. It
// works by posting a barrier callback and waiting for it.
func (m *LoopMarshaller) Drain(ctx context.Context) error {
	if m.closed.Load() {
		return errors.New("marshaller is stopped", errors.CategoryConflict).
			WithTextCode("ASYNC_MARSHALLER_STOPPED")
	}
	done := make(chan struct{})
	m.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryExternal, "drain interrupted")
	}
}

// Stop terminates the dedicated goroutine after the callback currently
// executing, if any, returns. Queued callbacks that have not started are
// discarded. Stop is idempotent and waits for the goroutine to exit.
func (m *LoopMarshaller) Stop() {
	m.once.Do(func() {
		m.closed.Store(true)
		m.cancel()
		<-m.stopped
	})
}

func (m *LoopMarshaller) run() {
	defer close(m.stopped)
	for {
		select {
		case fn := <-m.queue:
			m.invoke(fn)
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *LoopMarshaller) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			perr := NewPanicError(r)
			m.logger.Error("marshaller callback panicked: %v", perr)
		}
	}()
	fn()
}

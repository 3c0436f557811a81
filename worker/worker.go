package worker

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-async"
)

// forcedAbortGrace is how long Terminate lingers after reporting that forced
// abort is unavailable, in case the interrupt was enough.
const forcedAbortGrace = 100 * time.Millisecond

// Worker owns one dedicated goroutine that repeatedly drives a Loop. It
// supports cooperative stop, pause/resume, an inline mode that borrows the
// calling goroutine, and a best-effort terminate escalation.
//
// All flags and the start provenance are guarded by a single mutex; the loop
// body never mutates worker state directly, it only requests transitions.
type Worker struct {
	mu sync.Mutex

	loop        Loop
	name        string
	logger      async.Logger
	metrics     Metrics
	delay       time.Duration
	stopTimeout time.Duration

	running  bool
	paused   bool
	stopReq  bool
	finished bool
	disposed bool

	stopCh    chan struct{}
	resumeCh  chan struct{}
	doneCh    chan struct{}
	runCancel context.CancelFunc

	info *StartInfo
}

// New builds a worker around loop. The worker is idle until Start or
// RunInline is called.
func New(loop Loop, opts ...Option) *Worker {
	w := &Worker{
		loop:    loop,
		name:    "worker",
		metrics: NilMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.logger = async.NormalizeLogger(w.logger)
	return w
}

// Name returns the worker name.
func (w *Worker) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name
}

// SetName renames the worker. Renaming a running worker is rejected so logs
// and metrics stay attributable to one name per run.
func (w *Worker) SetName(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrMutateWhileRunning
	}
	w.name = name
	return nil
}

// State derives the observable lifecycle state from the internal flags.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Worker) stateLocked() State {
	switch {
	case w.running && w.stopReq:
		return StateStopRequested
	case w.running && w.paused:
		return StatePaused
	case w.running:
		return StateRunning
	case w.finished || w.disposed:
		return StateStopped
	default:
		return StateIdle
	}
}

// Info returns a copy of the provenance captured at the most recent start,
// or nil if the worker never started.
func (w *Worker) Info() *StartInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.info == nil {
		return nil
	}
	cp := *w.info
	return &cp
}

// Start launches the loop on a dedicated goroutine. Calling Start on a
// running worker is a no-op. Starting a disposed worker, or restarting one
// that already ran to completion, fails with an invalid-state error.
func (w *Worker) Start() error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if w.finished {
		w.mu.Unlock()
		return ErrNotRestartable
	}
	if w.loop == nil {
		w.mu.Unlock()
		return apperrors.New("worker has no loop", apperrors.CategoryBadInput).
			WithTextCode("WORKER_NO_LOOP")
	}
	ctx := w.prepareRunLocked(false)
	name := w.name
	w.mu.Unlock()

	w.metrics.StateChange(name, StateIdle, StateRunning)
	go w.drive(ctx)
	return nil
}

// RunInline drives the loop on the calling goroutine until a stop is
// requested. It is mutually exclusive with Start.
func (w *Worker) RunInline() error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	if w.finished {
		w.mu.Unlock()
		return ErrNotRestartable
	}
	if w.loop == nil {
		w.mu.Unlock()
		return apperrors.New("worker has no loop", apperrors.CategoryBadInput).
			WithTextCode("WORKER_NO_LOOP")
	}
	ctx := w.prepareRunLocked(true)
	name := w.name
	w.mu.Unlock()

	w.metrics.StateChange(name, StateIdle, StateRunning)
	w.drive(ctx)
	return nil
}

// prepareRunLocked resets the per-run flags and captures provenance. The
// caller holds the mutex. Caller skip is 2: prepareRunLocked + Start/RunInline.
func (w *Worker) prepareRunLocked(inline bool) context.Context {
	w.stopReq = false
	w.paused = false
	w.stopCh = make(chan struct{})
	w.resumeCh = nil
	w.doneCh = make(chan struct{})
	w.info = captureStartInfo(2, inline)
	ctx, cancel := context.WithCancel(context.Background())
	w.runCancel = cancel
	w.running = true
	return ctx
}

// RequestStop sets the stop flag and releases any pause wait. It is
// non-blocking and safe to call from any goroutine, including from inside
// the loop body itself. Stopping a worker that is not running is a no-op.
func (w *Worker) RequestStop() {
	w.mu.Lock()
	if !w.running || w.stopReq {
		w.mu.Unlock()
		return
	}
	from := w.stateLocked()
	w.stopReq = true
	close(w.stopCh)
	name := w.name
	w.mu.Unlock()

	w.metrics.StateChange(name, from, StateStopRequested)
}

// Pause suspends the loop before its next iteration. Idempotent. An
// iteration already in flight finishes first; a pending stop overrides the
// pause.
func (w *Worker) Pause() {
	w.mu.Lock()
	if w.paused {
		w.mu.Unlock()
		return
	}
	from := w.stateLocked()
	w.paused = true
	w.resumeCh = make(chan struct{})
	name := w.name
	running := w.running
	w.mu.Unlock()

	if running {
		w.metrics.StateChange(name, from, StatePaused)
	}
}

// Resume releases a paused loop. Idempotent.
func (w *Worker) Resume() {
	w.mu.Lock()
	if !w.paused {
		w.mu.Unlock()
		return
	}
	w.paused = false
	close(w.resumeCh)
	w.resumeCh = nil
	name := w.name
	running := w.running
	to := w.stateLocked()
	w.mu.Unlock()

	if running {
		w.metrics.StateChange(name, StatePaused, to)
	}
}

// Wait blocks until the loop has fully exited, including the finalizer, or
// ctx is done. Returns nil immediately when the worker never started.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.doneCh
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.CategoryExternal, "wait interrupted").
			WithTextCode("WORKER_WAIT_INTERRUPTED")
	}
}

// WaitTimeout waits up to d for the loop to fully exit and reports whether
// it did. A non-positive d polls without blocking.
func (w *Worker) WaitTimeout(d time.Duration) bool {
	w.mu.Lock()
	done := w.doneCh
	w.mu.Unlock()
	if done == nil {
		return true
	}
	if d <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Stop requests a stop and waits for the loop to exit.
func (w *Worker) Stop(ctx context.Context) error {
	w.RequestStop()
	return w.Wait(ctx)
}

// StopTimeout requests a stop and waits up to d, reporting whether the loop
// actually exited in time.
func (w *Worker) StopTimeout(d time.Duration) bool {
	w.RequestStop()
	return w.WaitTimeout(d)
}

// Terminate is the emergency escalation: request stop, cancel the iteration
// context to interrupt blocked waits inside the loop, then wait up to d.
//
// The Go runtime offers no safe preemption of an arbitrary goroutine, so
// when force is set and the loop is still alive the call lingers briefly and
// then reports failure instead of faking success. Failure to stop is always
// reported through the return value, never as an error.
func (w *Worker) Terminate(d time.Duration, force bool) bool {
	w.RequestStop()

	w.mu.Lock()
	cancel := w.runCancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if w.WaitTimeout(d) {
		return true
	}
	if force {
		w.logger.Warn("worker %q: forced abort is not supported on this runtime", w.Name())
		return w.WaitTimeout(forcedAbortGrace)
	}
	return false
}

// Dispose requests a stop and waits for completion, bounded by the
// configured stop timeout when one was set. After Dispose the worker cannot
// be started again. Reports whether the loop is confirmed stopped.
func (w *Worker) Dispose() bool {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return true
	}
	w.disposed = true
	timeout := w.stopTimeout
	w.mu.Unlock()

	w.RequestStop()
	if timeout > 0 {
		return w.WaitTimeout(timeout)
	}
	_ = w.Wait(context.Background())
	return true
}

// drive is the loop driver. It runs on the dedicated goroutine (or the
// calling goroutine in inline mode) and is the only place that observes the
// EndIteration unwind.
func (w *Worker) drive(ctx context.Context) {
	w.mu.Lock()
	info := w.info
	done := w.doneCh
	name := w.name
	w.mu.Unlock()
	info.markLoopGoroutine()

	w.logger.Debug("worker %q: loop started (run=%s caller=%s)", name, info.RunID, info.Caller)

	defer func() {
		w.finalize(ctx)
		w.mu.Lock()
		w.running = false
		w.finished = true
		w.mu.Unlock()
		w.metrics.StateChange(name, StateStopRequested, StateStopped)
		w.logger.Debug("worker %q: loop stopped", name)
		close(done)
	}()

	if err := w.initialize(ctx); err != nil {
		if !w.continueAfter(err) {
			w.RequestStop()
			return
		}
	}

	for w.awaitRunnable() {
		started := time.Now()
		err := w.iterate(ctx)
		w.metrics.IterationDuration(name, time.Since(started))
		if err != nil {
			w.metrics.IterationError(name)
			if !w.continueAfter(err) {
				w.RequestStop()
				return
			}
		}
		if d := w.interIterationDelay(); d > 0 {
			if !w.sleep(d) {
				return
			}
		}
	}
}

// awaitRunnable blocks while the loop is paused and reports whether the next
// iteration may run. A pending stop always wins over a pause.
func (w *Worker) awaitRunnable() bool {
	for {
		w.mu.Lock()
		if w.stopReq {
			w.mu.Unlock()
			return false
		}
		if !w.paused {
			w.mu.Unlock()
			return true
		}
		resume := w.resumeCh
		stop := w.stopCh
		w.mu.Unlock()

		select {
		case <-resume:
		case <-stop:
			return false
		}
	}
}

func (w *Worker) initialize(ctx context.Context) (err error) {
	init, ok := w.loop.(Initializer)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			if _, isEnd := r.(endIterationSignal); isEnd {
				w.RequestStop()
				return
			}
			err = async.NewPanicError(r)
		}
	}()
	return init.OnStart(ctx)
}

// iterate runs one unit of work, converting panics to errors and swallowing
// the EndIteration sentinel after turning it into a stop request.
func (w *Worker) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, isEnd := r.(endIterationSignal); isEnd {
				w.RequestStop()
				return
			}
			err = async.NewPanicError(r)
		}
	}()
	return w.loop.Iterate(ctx)
}

// finalize runs the loop's finalizer exactly once. Errors and panics from it
// are logged, never propagated.
func (w *Worker) finalize(ctx context.Context) {
	fin, ok := w.loop.(Finalizer)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker %q: finalizer panicked: %v", w.Name(), async.NewPanicError(r))
		}
	}()
	if err := fin.OnStop(ctx); err != nil {
		w.logger.Error("worker %q: finalizer failed: %v", w.Name(), err)
	}
}

// continueAfter routes an iteration error through the loop's error policy.
// Loops without a policy stop on the first error.
func (w *Worker) continueAfter(err error) bool {
	w.logger.Error("worker %q: iteration error: %v", w.Name(), err)
	if policy, ok := w.loop.(ErrorPolicy); ok {
		return policy.OnError(err)
	}
	return false
}

func (w *Worker) interIterationDelay() time.Duration {
	if dp, ok := w.loop.(DelayProvider); ok {
		return dp.IterationDelay()
	}
	return w.delay
}

// sleep waits the inter-iteration delay, interruptible by a stop request.
func (w *Worker) sleep(d time.Duration) bool {
	w.mu.Lock()
	stop := w.stopCh
	w.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

type endIterationSignal struct{}

// EndIteration requests a stop and unwinds out of the current iteration from
// any call depth, without the body threading a "should continue" flag
// through every frame. The unwind is caught only by the loop driver; calling
// EndIteration outside a loop body panics.
func EndIteration() {
	panic(endIterationSignal{})
}

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-async"
)

// countingLoop stops itself through the worker once limit is reached.
type countingLoop struct {
	worker *Worker
	count  atomic.Int64
	limit  int64

	startCalls atomic.Int64
	stopCalls  atomic.Int64
	stopErr    error
}

func (l *countingLoop) OnStart(ctx context.Context) error {
	l.startCalls.Add(1)
	return nil
}

func (l *countingLoop) Iterate(ctx context.Context) error {
	if l.count.Load() >= l.limit {
		l.worker.RequestStop()
		return nil
	}
	l.count.Add(1)
	return nil
}

func (l *countingLoop) OnStop(ctx context.Context) error {
	l.stopCalls.Add(1)
	return l.stopErr
}

func newCountingWorker(limit int64, opts ...Option) (*Worker, *countingLoop) {
	loop := &countingLoop{limit: limit}
	w := New(loop, opts...)
	loop.worker = w
	return w, loop
}

func TestStartThenImmediateStop(t *testing.T) {
	w, loop := newCountingWorker(10)

	require.NoError(t, w.Start())
	w.RequestStop()

	require.True(t, w.WaitTimeout(2*time.Second), "worker must stop")

	count := loop.count.Load()
	assert.GreaterOrEqual(t, count, int64(0))
	assert.LessOrEqual(t, count, int64(10))
	assert.Equal(t, StateStopped, w.State())
	assert.Equal(t, int64(1), loop.stopCalls.Load(), "finalizer runs exactly once")
}

func TestBoundedCounterScenario(t *testing.T) {
	w, loop := newCountingWorker(10)

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))

	assert.Equal(t, int64(10), loop.count.Load())
	assert.Equal(t, int64(1), loop.startCalls.Load())
	assert.Equal(t, int64(1), loop.stopCalls.Load())
}

func TestStartIsNoopWhileRunning(t *testing.T) {
	block := make(chan struct{})
	loop := &countingLoop{limit: 1 << 30}
	w := New(LoopFunc(func(ctx context.Context) error {
		loop.count.Add(1)
		<-block
		return nil
	}))

	require.NoError(t, w.Start())
	require.NoError(t, w.Start(), "second Start must be a no-op")

	close(block)
	require.True(t, w.StopTimeout(2*time.Second))
}

func TestRestartAfterStopRejected(t *testing.T) {
	w, _ := newCountingWorker(1)

	require.NoError(t, w.Start())
	require.True(t, w.StopTimeout(2*time.Second))

	err := w.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRestartable))
}

func TestStartAfterDisposeRejected(t *testing.T) {
	w, _ := newCountingWorker(1)
	require.True(t, w.Dispose())

	err := w.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisposed))
}

func TestPauseBlocksIterationsAndResumeReleases(t *testing.T) {
	w, loop := newCountingWorker(1 << 30)
	require.NoError(t, w.Start())

	waitFor(t, time.Second, func() bool { return loop.count.Load() > 0 })

	w.Pause()
	w.Pause() // idempotent

	// Let the in-flight iteration drain, then the count must hold still.
	time.Sleep(20 * time.Millisecond)
	snapshot := loop.count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, snapshot, loop.count.Load(), "no iteration may run while paused")
	assert.Equal(t, StatePaused, w.State())

	w.Resume()
	w.Resume() // idempotent
	waitFor(t, time.Second, func() bool { return loop.count.Load() > snapshot })

	require.True(t, w.StopTimeout(2*time.Second))
}

func TestStopReleasesPauseWait(t *testing.T) {
	w, _ := newCountingWorker(1 << 30)
	require.NoError(t, w.Start())

	w.Pause()
	waitFor(t, time.Second, func() bool { return w.State() == StatePaused })

	w.RequestStop()
	require.True(t, w.WaitTimeout(2*time.Second), "a pending stop must release the pause wait")
}

func TestRequestStopFromInsideIteration(t *testing.T) {
	var w *Worker
	var count atomic.Int64
	w = New(LoopFunc(func(ctx context.Context) error {
		count.Add(1)
		w.RequestStop()
		return nil
	}))

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))
	assert.Equal(t, int64(1), count.Load(), "loop exits after the iteration that requested the stop")
}

// unwindLoop exercises EndIteration from a nested call chain.
type unwindLoop struct {
	afterCall atomic.Bool
	stopCalls atomic.Int64
}

func (l *unwindLoop) Iterate(ctx context.Context) error {
	l.depthOne()
	l.afterCall.Store(true)
	return nil
}

func (l *unwindLoop) depthOne() { l.depthTwo() }

func (l *unwindLoop) depthTwo() {
	EndIteration()
}

func (l *unwindLoop) OnStop(ctx context.Context) error {
	l.stopCalls.Add(1)
	return nil
}

func TestEndIterationUnwindsWithoutRunningLaterCode(t *testing.T) {
	loop := &unwindLoop{}
	w := New(loop)

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))

	assert.False(t, loop.afterCall.Load(), "no code after EndIteration may run")
	assert.Equal(t, int64(1), loop.stopCalls.Load(), "finalizer still runs exactly once")
	assert.Equal(t, StateStopped, w.State())
}

// flakyLoop fails every iteration; its policy tolerates two errors.
type flakyLoop struct {
	iterations atomic.Int64
	errorCalls atomic.Int64
}

func (l *flakyLoop) Iterate(ctx context.Context) error {
	l.iterations.Add(1)
	return errors.New("boom")
}

func (l *flakyLoop) OnError(err error) bool {
	return l.errorCalls.Add(1) < 3
}

func TestErrorPolicyDecidesContinueOrStop(t *testing.T) {
	loop := &flakyLoop{}
	w := New(loop, WithLogger(async.NewFmtLogger(discard{})))

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))

	assert.Equal(t, int64(3), loop.iterations.Load())
	assert.Equal(t, int64(3), loop.errorCalls.Load())
}

func TestDefaultErrorPolicyStops(t *testing.T) {
	var count atomic.Int64
	w := New(LoopFunc(func(ctx context.Context) error {
		count.Add(1)
		return errors.New("boom")
	}), WithLogger(async.NewFmtLogger(discard{})))

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))
	assert.Equal(t, int64(1), count.Load())
}

func TestIterationPanicRoutesThroughPolicy(t *testing.T) {
	loop := &panicLoop{}
	w := New(loop, WithLogger(async.NewFmtLogger(discard{})))

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))

	require.Error(t, loop.seen)
	var perr *async.PanicError
	assert.True(t, errors.As(loop.seen, &perr))
}

type panicLoop struct {
	seen error
}

func (l *panicLoop) Iterate(ctx context.Context) error {
	panic("kaboom")
}

func (l *panicLoop) OnError(err error) bool {
	l.seen = err
	return false
}

func TestFinalizerErrorIsOnlyLogged(t *testing.T) {
	loop := &countingLoop{limit: 1, stopErr: errors.New("cleanup failed")}
	w := New(loop, WithLogger(async.NewFmtLogger(discard{})))
	loop.worker = w

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))
	assert.Equal(t, int64(1), loop.stopCalls.Load())
}

func TestTerminateReturnsFalseOnStuckLoopWithoutForce(t *testing.T) {
	block := make(chan struct{})
	w := New(LoopFunc(func(ctx context.Context) error {
		<-block
		return nil
	}))

	require.NoError(t, w.Start())
	waitFor(t, time.Second, func() bool { return w.State() != StateIdle })
	time.Sleep(10 * time.Millisecond) // let the iteration block

	assert.False(t, w.Terminate(0, false), "a stuck loop must report not-stopped, not hang")

	close(block)
	require.True(t, w.WaitTimeout(2*time.Second))
}

func TestTerminateInterruptsContextBoundWaits(t *testing.T) {
	w := New(LoopFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))

	require.NoError(t, w.Start())
	time.Sleep(10 * time.Millisecond)

	assert.True(t, w.Terminate(time.Second, false))
}

func TestTerminateForcedAbortDegradesToFalse(t *testing.T) {
	block := make(chan struct{})
	w := New(LoopFunc(func(ctx context.Context) error {
		<-block
		return nil
	}), WithLogger(async.NewFmtLogger(discard{})))

	require.NoError(t, w.Start())
	time.Sleep(10 * time.Millisecond)

	assert.False(t, w.Terminate(20*time.Millisecond, true),
		"forced abort is unsupported and must report failure")

	close(block)
	require.True(t, w.WaitTimeout(2*time.Second))
}

func TestRunInline(t *testing.T) {
	w, loop := newCountingWorker(3)

	require.NoError(t, w.RunInline())
	assert.Equal(t, int64(3), loop.count.Load())
	assert.Equal(t, StateStopped, w.State())
}

func TestRunInlineRejectedWhileRunning(t *testing.T) {
	block := make(chan struct{})
	w := New(LoopFunc(func(ctx context.Context) error {
		<-block
		return nil
	}))

	require.NoError(t, w.Start())
	err := w.RunInline()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	close(block)
	require.True(t, w.StopTimeout(2*time.Second))
}

func TestSetNameRejectedWhileRunning(t *testing.T) {
	block := make(chan struct{})
	w := New(LoopFunc(func(ctx context.Context) error {
		<-block
		return nil
	}), WithName("original"))

	require.NoError(t, w.Start())
	err := w.SetName("renamed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMutateWhileRunning))
	assert.Equal(t, "original", w.Name())

	close(block)
	require.True(t, w.StopTimeout(2*time.Second))
	require.NoError(t, w.SetName("renamed"))
	assert.Equal(t, "renamed", w.Name())
}

func TestProvenanceCapturedOncePerStart(t *testing.T) {
	w, _ := newCountingWorker(1)
	assert.Nil(t, w.Info())

	require.NoError(t, w.Start())
	require.True(t, w.WaitTimeout(2*time.Second))

	info := w.Info()
	require.NotNil(t, info)
	assert.NotEmpty(t, info.Caller)
	assert.Contains(t, info.Caller, "TestProvenanceCapturedOncePerStart")
	assert.False(t, info.StartedAt.IsZero())
	assert.False(t, info.Inline)
}

func TestIterationDelayInterruptedByStop(t *testing.T) {
	var count atomic.Int64
	w := New(LoopFunc(func(ctx context.Context) error {
		count.Add(1)
		return nil
	}), WithIterationDelay(time.Hour))

	require.NoError(t, w.Start())
	waitFor(t, time.Second, func() bool { return count.Load() == 1 })

	// The loop is now inside its hour-long delay; stop must cut it short.
	start := time.Now()
	require.True(t, w.StopTimeout(2*time.Second))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), count.Load())
}

func TestWaitOnNeverStartedWorker(t *testing.T) {
	w, _ := newCountingWorker(1)
	assert.True(t, w.WaitTimeout(0))
	assert.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, StateIdle, w.State())
}

func TestWaitInterruptedByContext(t *testing.T) {
	block := make(chan struct{})
	w := New(LoopFunc(func(ctx context.Context) error {
		<-block
		return nil
	}))
	require.NoError(t, w.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, w.Wait(ctx))

	close(block)
	require.True(t, w.StopTimeout(2*time.Second))
}

// discard silences logger output in tests that provoke errors on purpose.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

package worker

import (
	"context"
	"time"
)

// Loop is the unit of repeated work a Worker drives. Iterate is called once
// per iteration on the worker's dedicated goroutine; returning an error
// routes through the worker's error policy. Iterate may call EndIteration to
// unwind out of the current iteration and stop the loop.
type Loop interface {
	Iterate(ctx context.Context) error
}

// LoopFunc is an adapter that lets you use a function as a Loop.
type LoopFunc func(ctx context.Context) error

// Iterate calls the underlying function.
func (f LoopFunc) Iterate(ctx context.Context) error {
	return f(ctx)
}

// Initializer is an optional Loop upgrade called once before the first
// iteration. A returned error is routed through the error policy; when the
// policy stops, no iteration runs but the finalizer still does.
type Initializer interface {
	OnStart(ctx context.Context) error
}

// Finalizer is an optional Loop upgrade called exactly once after the loop
// exits, whatever the reason. Its error is logged, never propagated.
type Finalizer interface {
	OnStop(ctx context.Context) error
}

// ErrorPolicy is an optional Loop upgrade that decides whether the loop
// continues (true) or stops (false) after an iteration error. Loops that do
// not implement it stop on the first error.
type ErrorPolicy interface {
	OnError(err error) bool
}

// DelayProvider is an optional Loop upgrade that supplies the delay between
// iterations. Loops that do not implement it fall back to the worker's
// configured delay, default none.
type DelayProvider interface {
	IterationDelay() time.Duration
}

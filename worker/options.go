package worker

import (
	"time"

	"github.com/goliatone/go-async"
)

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithName sets the worker name used in logs and metrics.
func WithName(name string) Option {
	return func(w *Worker) {
		w.name = name
	}
}

// WithLogger sets the logger; nil normalizes to the FmtLogger fallback.
func WithLogger(l async.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithIterationDelay sets the delay between iterations for loops that do not
// implement DelayProvider.
func WithIterationDelay(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithStopTimeout bounds how long Dispose waits for the loop to exit.
// Zero means wait indefinitely.
func WithStopTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.stopTimeout = d
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

package worker

import "time"

// Metrics is an optional plug point for iteration instrumentation.
// Implementations must be fast and safe for concurrent use.
type Metrics interface {
	IterationDuration(workerName string, d time.Duration)
	IterationError(workerName string)
	StateChange(workerName string, from, to State)
}

// NilMetrics is the no-op default.
type NilMetrics struct{}

func (NilMetrics) IterationDuration(string, time.Duration) {}
func (NilMetrics) IterationError(string)                   {}
func (NilMetrics) StateChange(string, State, State)        {}

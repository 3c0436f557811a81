package async

// Outcome classifies a completed asynchronous step three ways: succeeded with
// a value, faulted with an error, or canceled. Cancellation is deliberately a
// distinct state and is never folded into a generic failure.
type Outcome[T any] struct {
	value    T
	err      error
	success  bool
	canceled bool
}

// Success builds a succeeded outcome carrying v.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, success: true}
}

// Failure builds a faulted outcome carrying err.
func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{err: err}
}

// Canceled builds a canceled outcome.
func Canceled[T any]() Outcome[T] {
	return Outcome[T]{canceled: true}
}

// CanceledFrom propagates a canceled or faulted predecessor across a value
// type change. A succeeded predecessor maps to a canceled outcome, since the
// value cannot cross the type boundary.
func CanceledFrom[In, Out any](from Outcome[In]) Outcome[Out] {
	if from.err != nil {
		return Failure[Out](from.err)
	}
	return Canceled[Out]()
}

// Value returns the carried value; the zero value unless IsSuccess.
func (o Outcome[T]) Value() T { return o.value }

// Err returns the carried error; nil unless IsFault.
func (o Outcome[T]) Err() error { return o.err }

// IsSuccess reports whether the step completed with a value.
func (o Outcome[T]) IsSuccess() bool { return o.success }

// IsCanceled reports whether the step was canceled.
func (o Outcome[T]) IsCanceled() bool { return o.canceled }

// IsFault reports whether the step failed with an error.
func (o Outcome[T]) IsFault() bool { return !o.success && !o.canceled }

// Label returns the user-facing classification: "done", "canceled" or "error".
func (o Outcome[T]) Label() string {
	switch {
	case o.success:
		return "done"
	case o.canceled:
		return "canceled"
	default:
		return "error"
	}
}

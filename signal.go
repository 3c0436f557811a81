package async

import (
	"context"
	"sync"
)

// Signal is a one-way cancellation flag observable and settable from any
// goroutine. Once canceled it stays canceled; Cancel is idempotent.
//
// A nil *Signal is valid and behaves as "never canceled", so optional
// cancellation can be threaded through without nil checks at every call site.
type Signal struct {
	mu       sync.Mutex
	done     chan struct{}
	canceled bool
}

// NewSignal creates a signal in the not-requested state.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Cancel moves the signal to the requested state and releases all waiters.
func (s *Signal) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.canceled = true
	close(s.done)
}

// IsCanceled reports whether cancellation has been requested.
func (s *Signal) IsCanceled() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

// Done returns a channel closed when cancellation is requested. On a nil
// signal it returns nil, which never becomes ready in a select.
func (s *Signal) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}

// SignalFromContext returns a signal that cancels when ctx is done. The
// returned signal can also be canceled directly; the two sources are ORed.
func SignalFromContext(ctx context.Context) *Signal {
	s := NewSignal()
	if ctx == nil {
		return s
	}
	if ctx.Err() != nil {
		s.Cancel()
		return s
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.Done():
		}
	}()
	return s
}

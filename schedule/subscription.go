package schedule

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is the minimal detachment contract for a scheduled job.
type Subscription interface {
	Unsubscribe()
}

// Status reports a schedule handle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusIdle      Status = "idle"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Handle extends Subscription with lifecycle controls over one scheduled job.
type Handle interface {
	Subscription
	Cancel()
	Status() Status
	Err() error
	Done() <-chan struct{}
	ID() uuid.UUID
}

// isTerminal reports whether a handle can never run again. Failed is not
// terminal: a recurring job keeps ticking after a failed run.
func isTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusStopped:
		return true
	default:
		return false
	}
}

type jobHandle struct {
	scheduler *Scheduler
	id        uuid.UUID
	entryID   int
	done      chan struct{}

	mu     sync.RWMutex
	status Status
	err    error
	once   sync.Once
}

func (h *jobHandle) Unsubscribe() {
	h.Cancel()
}

func (h *jobHandle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.scheduler != nil {
			h.scheduler.removeHandle(h.id)
		}
		h.setTerminal(StatusCanceled, nil)
	})
}

func (h *jobHandle) Status() Status {
	if h == nil {
		return StatusStopped
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *jobHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *jobHandle) Done() <-chan struct{} {
	if h == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.done
}

func (h *jobHandle) ID() uuid.UUID {
	if h == nil {
		return uuid.Nil
	}
	return h.id
}

func (h *jobHandle) setStatus(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
}

func (h *jobHandle) setTerminal(status Status, err error) {
	h.setStatus(status, err)
	if h.done != nil {
		select {
		case <-h.done:
		default:
			close(h.done)
		}
	}
}

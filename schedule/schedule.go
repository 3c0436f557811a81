// Package schedule runs jobs and chains periodically on cron expressions.
// It exists for hosts that want the worker/chain primitives driven by wall
// clock time rather than by their own loop.
package schedule

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"

	"github.com/goliatone/go-async"
	"github.com/goliatone/go-async/chain"
)

// Job is one schedulable unit of work. The signal fires when the scheduler
// stops, so long-running jobs can exit cooperatively.
type Job func(sig *async.Signal) error

// Scheduler wraps cron scheduling around Job and chain execution.
type Scheduler struct {
	cron         *rcron.Cron
	location     *time.Location
	logger       async.Logger
	errorHandler func(error)
	seconds      bool
	signal       *async.Signal

	mu      sync.Mutex
	handles map[uuid.UUID]*jobHandle
}

// New creates a scheduler with the provided options. Call Start to begin
// executing jobs.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		signal:   async.NewSignal(),
		handles:  make(map[uuid.UUID]*jobHandle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = async.NormalizeLogger(s.logger)
	if s.errorHandler == nil {
		s.errorHandler = func(err error) {
			s.logger.Error("scheduled job failed: %v", err)
		}
	}

	copts := []rcron.Option{rcron.WithLocation(s.location)}
	if s.seconds {
		copts = append(copts, rcron.WithSeconds())
	}
	s.cron = rcron.New(copts...)
	return s
}

// Every schedules job on a recurring cron expression.
func (s *Scheduler) Every(expr string, job Job) (Handle, error) {
	if expr == "" {
		return nil, apperrors.New("cron expression cannot be empty", apperrors.CategoryBadInput).
			WithTextCode("SCHEDULE_EMPTY_EXPRESSION")
	}
	if job == nil {
		return nil, apperrors.New("job cannot be nil", apperrors.CategoryBadInput).
			WithTextCode("SCHEDULE_NIL_JOB")
	}

	h := s.newHandle()
	entryID, err := s.cron.AddJob(expr, rcron.FuncJob(func() {
		s.tick(h, job)
	}))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryBadInput, "failed to add job").
			WithTextCode("SCHEDULE_ADD_FAILED").
			WithMetadata(map[string]any{"expression": expr})
	}
	h.entryID = int(entryID)
	s.storeHandle(h)
	return h, nil
}

// EveryChain schedules a chain pipeline on a recurring cron expression. The
// builder runs once per tick; the tick's status reflects the pipeline's
// three-way classification.
func (s *Scheduler) EveryChain(expr string, build func(sig *async.Signal) *chain.Chain) (Handle, error) {
	if build == nil {
		return nil, apperrors.New("chain builder cannot be nil", apperrors.CategoryBadInput).
			WithTextCode("SCHEDULE_NIL_BUILDER")
	}
	return s.Every(expr, func(sig *async.Signal) error {
		c := build(sig)
		if c == nil {
			return apperrors.New("chain builder returned nil", apperrors.CategoryBadInput).
				WithTextCode("SCHEDULE_NIL_CHAIN")
		}
		outcome := c.Run().Outcome()
		if outcome.IsFault() {
			return outcome.Err()
		}
		return nil
	})
}

// After schedules one execution of job after delay.
func (s *Scheduler) After(delay time.Duration, job Job) (Handle, error) {
	if job == nil {
		return nil, apperrors.New("job cannot be nil", apperrors.CategoryBadInput).
			WithTextCode("SCHEDULE_NIL_JOB")
	}
	if delay < 0 {
		delay = 0
	}

	h := s.newHandle()
	s.storeHandle(h)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-h.Done():
			return
		case <-s.signal.Done():
			s.removeStoredHandle(h.id)
			h.setTerminal(StatusStopped, nil)
			return
		}

		if isTerminal(h.Status()) {
			return
		}
		h.setStatus(StatusRunning, nil)
		if err := s.run(job); err != nil {
			h.setTerminal(StatusFailed, err)
			s.errorHandler(err)
			s.removeStoredHandle(h.id)
			return
		}
		h.setTerminal(StatusCompleted, nil)
		s.removeStoredHandle(h.id)
	}()

	return h, nil
}

// tick executes one recurring run, skipping terminal handles.
func (s *Scheduler) tick(h *jobHandle, job Job) {
	if isTerminal(h.Status()) {
		return
	}
	h.setStatus(StatusRunning, nil)
	if err := s.run(job); err != nil {
		h.setStatus(StatusFailed, err)
		s.errorHandler(err)
		return
	}
	if !isTerminal(h.Status()) {
		h.setStatus(StatusIdle, nil)
	}
}

// run invokes the job with the scheduler's stop signal, converting panics to
// errors.
func (s *Scheduler) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = async.NewPanicError(r)
		}
	}()
	return job(s.signal)
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops executing scheduled jobs, fires the stop signal for running
// jobs and marks live handles as stopped.
func (s *Scheduler) Stop(_ context.Context) error {
	s.cron.Stop()
	s.signal.Cancel()

	var handles []*jobHandle
	s.mu.Lock()
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[uuid.UUID]*jobHandle)
	s.mu.Unlock()

	for _, h := range handles {
		if h == nil {
			continue
		}
		if h.entryID > 0 {
			s.cron.Remove(rcron.EntryID(h.entryID))
		}
		if isTerminal(h.Status()) {
			continue
		}
		h.setTerminal(StatusStopped, nil)
	}
	return nil
}

func (s *Scheduler) removeHandle(id uuid.UUID) {
	h := s.removeStoredHandle(id)
	if h == nil {
		return
	}
	if h.entryID > 0 {
		s.cron.Remove(rcron.EntryID(h.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id uuid.UUID) *jobHandle {
	if s == nil || id == uuid.Nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handles[id]
	delete(s.handles, id)
	return h
}

func (s *Scheduler) storeHandle(h *jobHandle) {
	if s == nil || h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[uuid.UUID]*jobHandle)
	}
	s.handles[h.id] = h
}

func (s *Scheduler) newHandle() *jobHandle {
	return &jobHandle{
		scheduler: s,
		id:        uuid.New(),
		done:      make(chan struct{}),
		status:    StatusScheduled,
	}
}

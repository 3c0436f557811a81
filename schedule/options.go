package schedule

import (
	"time"

	"github.com/goliatone/go-async"
)

// Option defines the functional option type for Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone location for cron expressions.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l async.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithErrorHandler sets the callback invoked when a job run fails.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		if handler != nil {
			s.errorHandler = handler
		}
	}
}

// WithSeconds enables the optional seconds field in cron expressions.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.seconds = true
	}
}

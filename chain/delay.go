package chain

import (
	"time"

	"github.com/goliatone/go-async"
)

// Delay returns a future that succeeds after d, or cancels early when sig
// fires first. The internal timer is released on every exit path.
func Delay(d time.Duration, sig *async.Signal) *Future[Unit] {
	f := NewFuture[Unit]()
	if sig.IsCanceled() {
		f.Cancel()
		return f
	}
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			f.Complete(Unit{})
		case <-sig.Done():
			f.Cancel()
		}
	}()
	return f
}

// Sleep returns a future that succeeds after d and cannot be canceled.
func Sleep(d time.Duration) *Future[Unit] {
	f := NewFuture[Unit]()
	time.AfterFunc(d, func() {
		f.Complete(Unit{})
	})
	return f
}

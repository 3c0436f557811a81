package worker

import (
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-async"
)

// StartInfo records, best effort, who started the worker and where the loop
// runs. It is captured once per start and is read-only afterward; it exists
// purely for diagnostics.
type StartInfo struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	Caller      string
	File        string
	Line        int
	GoroutineID uint64
	Inline      bool
}

// captureStartInfo walks skip frames up from the caller to find the frame
// that invoked Start or RunInline. The goroutine id is filled in later by
// the loop goroutine itself.
func captureStartInfo(skip int, inline bool) *StartInfo {
	info := &StartInfo{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Inline:    inline,
	}
	if pc, file, line, ok := runtime.Caller(skip + 1); ok {
		info.File = file
		info.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			info.Caller = fn.Name()
		}
	}
	return info
}

// markLoopGoroutine stamps the id of the goroutine actually driving the loop.
func (i *StartInfo) markLoopGoroutine() {
	i.GoroutineID = async.GoroutineID()
}

package async

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// PanicError carries a recovered panic value and the cleaned stack trace of
// the panicking goroutine. It lets callers treat a panic as an ordinary
// error while preserving diagnostics.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures the current stack and wraps the recovered value.
// Call it directly from a deferred recover block so the stack is relevant.
func NewPanicError(value any) *PanicError {
	buf := make([]byte, 8096)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: value,
		Stack: cleanStackTrace(buf[:n]),
	}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a wrapped error when the panic value was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// cleanStackTrace removes the frames above and including the runtime panic
// machinery so logs start at the user frame that panicked.
func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}

// GoroutineID returns the numeric id of the calling goroutine. Diagnostics
// only; never use it for synchronization decisions.
func GoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	idField := strings.Fields(strings.TrimPrefix(string(buf), "goroutine "))[0]
	id, _ := strconv.ParseUint(idField, 10, 64)
	return id
}

package async

import (
	"errors"
	"strings"
	"testing"
)

func TestPanicErrorWrapsRecoveredValue(t *testing.T) {
	var perr *PanicError
	func() {
		defer func() {
			if r := recover(); r != nil {
				perr = NewPanicError(r)
			}
		}()
		panic("kaboom")
	}()

	if perr == nil {
		t.Fatal("expected a captured panic")
	}
	if !strings.Contains(perr.Error(), "kaboom") {
		t.Fatalf("Error() = %q, want the panic value", perr.Error())
	}
	if len(perr.Stack) == 0 {
		t.Fatal("expected a stack trace")
	}
	if strings.Contains(string(perr.Stack), "panic(") {
		t.Fatal("stack must start below the runtime panic machinery")
	}
}

func TestPanicErrorUnwrapsErrorValues(t *testing.T) {
	boom := errors.New("boom")

	perr := NewPanicError(boom)
	if !errors.Is(perr, boom) {
		t.Fatal("an error panic value must unwrap")
	}

	if NewPanicError("not an error").Unwrap() != nil {
		t.Fatal("a non-error panic value must not unwrap")
	}
}

func TestGoroutineID(t *testing.T) {
	self := GoroutineID()
	if self == 0 {
		t.Fatal("goroutine id must be non-zero")
	}
	if GoroutineID() != self {
		t.Fatal("goroutine id must be stable within a goroutine")
	}

	other := make(chan uint64, 1)
	go func() { other <- GoroutineID() }()
	if got := <-other; got == self {
		t.Fatal("distinct goroutines must have distinct ids")
	}
}

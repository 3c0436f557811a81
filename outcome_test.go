package async

import (
	"errors"
	"testing"
)

func TestOutcomeClassification(t *testing.T) {
	boom := errors.New("boom")

	ok := Success(42)
	if !ok.IsSuccess() || ok.IsFault() || ok.IsCanceled() {
		t.Fatal("Success must classify as success only")
	}
	if ok.Value() != 42 || ok.Err() != nil {
		t.Fatalf("Success carries (%d, %v), want (42, nil)", ok.Value(), ok.Err())
	}
	if ok.Label() != "done" {
		t.Fatalf("label = %q, want done", ok.Label())
	}

	fault := Failure[int](boom)
	if !fault.IsFault() || fault.IsSuccess() || fault.IsCanceled() {
		t.Fatal("Failure must classify as fault only")
	}
	if !errors.Is(fault.Err(), boom) {
		t.Fatalf("err = %v, want %v", fault.Err(), boom)
	}
	if fault.Label() != "error" {
		t.Fatalf("label = %q, want error", fault.Label())
	}

	canceled := Canceled[int]()
	if !canceled.IsCanceled() || canceled.IsSuccess() || canceled.IsFault() {
		t.Fatal("Canceled must classify as canceled only")
	}
	if canceled.Label() != "canceled" {
		t.Fatalf("label = %q, want canceled", canceled.Label())
	}
}

func TestCanceledFromKeepsFaults(t *testing.T) {
	boom := errors.New("boom")

	out := CanceledFrom[int, string](Failure[int](boom))
	if !out.IsFault() || !errors.Is(out.Err(), boom) {
		t.Fatal("a fault must survive the type change as a fault")
	}

	out = CanceledFrom[int, string](Canceled[int]())
	if !out.IsCanceled() {
		t.Fatal("a cancellation must survive the type change as canceled")
	}

	// A value cannot cross the type boundary, so success degrades to canceled.
	out = CanceledFrom[int, string](Success(1))
	if !out.IsCanceled() {
		t.Fatal("a success with an untranslatable value must map to canceled")
	}
}

package swarmerr

import (
	"errors"
	"testing"
)

func TestKindIsRetryable(t *testing.T) {
	cases := map[Kind]bool{
		KindValidation: false,
		KindExecution:  false,
		KindTransport:  true,
		KindCancelled:  false,
		KindTimeout:    true,
		KindSystem:     false,
	}
	for kind, want := range cases {
		if got := kind.IsRetryable(); got != want {
			t.Errorf("%s.IsRetryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestErrorStringIncludesToolWhenSet(t *testing.T) {
	err := Execution("fs_read", "boom", nil)
	if got := err.Error(); got != "[execution:fs_read] boom" {
		t.Fatalf("Error() = %q", got)
	}

	noTool := Transport("unreachable", nil)
	if got := noTool.Error(); got != "[transport] unreachable" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Transport("publish failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to cause")
	}
}

func TestErrorsIsMatchesCancelledSentinel(t *testing.T) {
	var err error = Cancelled
	if !errors.Is(err, Cancelled) {
		t.Fatalf("expected errors.Is to match the Cancelled sentinel")
	}
	if errors.Is(err, TimedOut) {
		t.Fatalf("expected Cancelled to not match TimedOut")
	}
}

func TestAsErrorExtractsStructuredError(t *testing.T) {
	err := Validation("name", "required")

	got, ok := AsError(err)
	if !ok {
		t.Fatalf("AsError() ok = false, want true")
	}
	if got.Kind != KindValidation || got.Field != "name" {
		t.Fatalf("got = %+v", got)
	}

	_, ok = AsError(errors.New("plain error"))
	if ok {
		t.Fatalf("AsError() ok = true for a non-swarmerr error")
	}
}

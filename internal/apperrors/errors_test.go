package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfThroughWrapping(t *testing.T) {
	base := New(CodeBlankEntity, "entity name is required")
	wrapped := fmt.Errorf("find: %w", base)

	if got := CodeOf(wrapped); got != CodeBlankEntity {
		t.Errorf("expected %s, got %s", CodeBlankEntity, got)
	}
	if !errors.Is(wrapped, New(CodeBlankEntity, "")) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, New(CodeNotFound, "")) {
		t.Error("expected different codes not to match")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeUnknown {
		t.Errorf("expected UNKNOWN, got %s", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("expected empty code for nil, got %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeStorage, "save memorandum", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if err.Error() != "save memorandum: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if IsInput(err) {
		t.Error("storage error is not an input error")
	}
	if !IsInput(New(CodeEmptyEvents, "x")) {
		t.Error("expected EMPTY_EVENTS to be an input error")
	}
}

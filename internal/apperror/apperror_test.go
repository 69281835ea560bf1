package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := Validation("bad offer", nil)
	if err.Error() != "bad offer" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestError_KindMatching(t *testing.T) {
	err := NotFound("car not found", nil)
	if !Is(err, KindNotFound) {
		t.Fatalf("expected not_found kind")
	}
	if Is(err, KindConflict) {
		t.Fatalf("did not expect conflict kind")
	}
}

func TestError_WrappedKindMatching(t *testing.T) {
	inner := InsufficientFunds("balance too low", nil)
	wrapped := fmt.Errorf("complete deal: %w", inner)
	if !Is(wrapped, KindInsufficientFunds) {
		t.Fatalf("expected insufficient_funds kind through wrapping")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Conflict("stock underflow", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to reach cause")
	}
}

func TestIs_PlainError(t *testing.T) {
	if Is(errors.New("plain"), KindValidation) {
		t.Fatalf("plain error must not match any kind")
	}
}

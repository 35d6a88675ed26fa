package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("contribute: %w", ErrOverflow)
	if got := KindOf(wrapped); got != KindArithmetic {
		t.Fatalf("expected arithmetic kind, got %s", got)
	}
	if got := CodeOf(wrapped); got != "Overflow" {
		t.Fatalf("unexpected code %q", got)
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind for untyped error")
	}
}

func TestMatchesKindAndCode(t *testing.T) {
	local := New(KindState, "Paused", "ledger: paused")
	other := New(KindState, "Paused", "queue: paused")
	if !Matches(local, other) {
		t.Fatalf("expected equivalent sentinels to match")
	}
	if stderrors.Is(local, other) {
		t.Fatalf("distinct sentinels must stay distinct for errors.Is")
	}
	if Matches(ErrOverflow, other) {
		t.Fatalf("unexpected match across codes")
	}
	wrapped := Wrap(local, "execute %s", "id-1")
	if !stderrors.Is(wrapped, local) || !Matches(wrapped, other) {
		t.Fatalf("expected wrapped sentinel to match")
	}
}

package curve

import (
	"errors"
	"math"
	"testing"

	coreerrors "launchpad/core/errors"
)

func TestRateInterpolatesLinearly(t *testing.T) {
	params := Params{StartRate: 10, EndRate: 40, AllocationCap: 100}
	cases := map[uint64]uint64{0: 10, 50: 25, 100: 40}
	for allocated, want := range cases {
		got, err := params.Rate(allocated)
		if err != nil {
			t.Fatalf("rate(%d): %v", allocated, err)
		}
		if got != want {
			t.Fatalf("rate(%d) = %d, want %d", allocated, got, want)
		}
	}
}

func TestRateIsMonotonic(t *testing.T) {
	params := Params{StartRate: 10_000, EndRate: 40_000, AllocationCap: 100_000_000}
	prev := uint64(0)
	for allocated := uint64(0); allocated <= params.AllocationCap; allocated += params.AllocationCap / 997 {
		rate, err := params.Rate(allocated)
		if err != nil {
			t.Fatalf("rate(%d): %v", allocated, err)
		}
		if rate < prev {
			t.Fatalf("rate decreased at %d: %d < %d", allocated, rate, prev)
		}
		prev = rate
	}
	end, err := params.Rate(params.AllocationCap)
	if err != nil || end != params.EndRate {
		t.Fatalf("expected end rate at cap, got %d (%v)", end, err)
	}
}

func TestRateOverflow(t *testing.T) {
	if _, err := Rate(math.MaxUint64, math.MaxUint64, 1, 2); !errors.Is(err, coreerrors.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Rate(1, 0, 1, 2); !errors.Is(err, coreerrors.ErrDivideByZero) {
		t.Fatalf("expected divide by zero, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	invalid := []Params{
		{StartRate: 0, EndRate: 1, AllocationCap: 1},
		{StartRate: 2, EndRate: 1, AllocationCap: 1},
		{StartRate: 1, EndRate: 1, AllocationCap: 0},
	}
	for _, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrInvalidCurve) {
			t.Fatalf("expected invalid curve for %+v, got %v", p, err)
		}
	}
	if err := (Params{StartRate: 1, EndRate: 1, AllocationCap: 1}).Validate(); err != nil {
		t.Fatalf("flat curve should be valid: %v", err)
	}
}

func TestProgress(t *testing.T) {
	got, err := Progress(50, 200)
	if err != nil || got != 25 {
		t.Fatalf("unexpected progress %d (%v)", got, err)
	}
}

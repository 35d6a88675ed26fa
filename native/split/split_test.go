package split

import (
	"errors"
	"math"
	"testing"

	coreerrors "launchpad/core/errors"
	"launchpad/crypto"
)

func payee(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func defaultWeights() []Weight {
	return []Weight{
		{Payee: payee(0x01), Percent: 80},
		{Payee: payee(0x02), Percent: 10},
		{Payee: payee(0x03), Percent: 10},
	}
}

func TestSharesFloorAndKeepDust(t *testing.T) {
	shares, err := Shares(1_000_000_007, defaultWeights())
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	want := []uint64{800_000_005, 100_000_000, 100_000_000}
	for i, s := range shares {
		if s.Amount != want[i] {
			t.Fatalf("share %d = %d, want %d", i, s.Amount, want[i])
		}
	}
	total, err := Total(shares)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 1_000_000_007 {
		t.Fatalf("shares exceed amount: %d", total)
	}
}

func TestSharesNeverExceedAmount(t *testing.T) {
	weights := []Weight{
		{Payee: payee(0x01), Percent: 33},
		{Payee: payee(0x02), Percent: 33},
		{Payee: payee(0x03), Percent: 34},
	}
	for amount := uint64(0); amount < 500; amount++ {
		shares, err := Shares(amount, weights)
		if err != nil {
			t.Fatalf("shares(%d): %v", amount, err)
		}
		total, _ := Total(shares)
		if total > amount {
			t.Fatalf("shares for %d sum to %d", amount, total)
		}
	}
}

func TestSharesRejectsInvalidWeights(t *testing.T) {
	over := []Weight{{Payee: payee(0x01), Percent: 60}, {Payee: payee(0x02), Percent: 41}}
	if _, err := Shares(10, over); !errors.Is(err, ErrWeightsExceed) {
		t.Fatalf("expected ErrWeightsExceed, got %v", err)
	}
	dup := []Weight{{Payee: payee(0x01), Percent: 10}, {Payee: payee(0x01), Percent: 10}}
	if _, err := Shares(10, dup); !errors.Is(err, ErrInvalidPayee) {
		t.Fatalf("expected ErrInvalidPayee, got %v", err)
	}
	zero := []Weight{{Percent: 10}}
	if _, err := Shares(10, zero); !errors.Is(err, ErrInvalidPayee) {
		t.Fatalf("expected ErrInvalidPayee for zero payee, got %v", err)
	}
}

func TestSharesOverflow(t *testing.T) {
	if _, err := Shares(math.MaxUint64, defaultWeights()); !errors.Is(err, coreerrors.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestValidateCompleteRequiresFullCoverage(t *testing.T) {
	if err := ValidateComplete(defaultWeights()); err != nil {
		t.Fatalf("default weights: %v", err)
	}
	short := []Weight{
		{Payee: payee(0x01), Percent: 30},
		{Payee: payee(0x02), Percent: 30},
		{Payee: payee(0x03), Percent: 30},
	}
	if err := Validate(short); err != nil {
		t.Fatalf("partial weights are valid for a plain split: %v", err)
	}
	if err := ValidateComplete(short); !errors.Is(err, ErrWeightsShort) {
		t.Fatalf("expected ErrWeightsShort, got %v", err)
	}
	over := []Weight{{Payee: payee(0x01), Percent: 60}, {Payee: payee(0x02), Percent: 41}}
	if err := ValidateComplete(over); !errors.Is(err, ErrWeightsExceed) {
		t.Fatalf("expected ErrWeightsExceed, got %v", err)
	}
}

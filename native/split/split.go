// Package split divides an amount across weighted payees.
package split

import (
	coreerrors "launchpad/core/errors"
	"launchpad/crypto"
	nativecommon "launchpad/native/common"
)

// Denominator is the whole against which weights are expressed.
const Denominator uint64 = 100

var (
	ErrWeightsExceed = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "split: weights exceed 100")
	ErrInvalidPayee  = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "split: invalid payee")
	ErrWeightsShort  = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "split: weights sum below 100")
)

// Weight assigns Percent of every split to Payee.
type Weight struct {
	Payee   crypto.Address
	Percent uint64
}

// Share is the amount a payee receives from one split.
type Share struct {
	Payee  crypto.Address
	Amount uint64
}

// Validate checks that every payee is set and distinct and that the weights
// sum to at most Denominator.
func Validate(weights []Weight) error {
	seen := make(map[crypto.Address]struct{}, len(weights))
	var total uint64
	for _, w := range weights {
		if w.Payee.IsZero() {
			return ErrInvalidPayee
		}
		if _, dup := seen[w.Payee]; dup {
			return ErrInvalidPayee
		}
		seen[w.Payee] = struct{}{}
		sum, err := nativecommon.Add(total, w.Percent)
		if err != nil {
			return err
		}
		total = sum
	}
	if total > Denominator {
		return ErrWeightsExceed
	}
	return nil
}

// ValidateComplete is Validate plus the requirement that the weights cover
// the whole amount, so only rounding dust is ever left unassigned.
func ValidateComplete(weights []Weight) error {
	if err := Validate(weights); err != nil {
		return err
	}
	var total uint64
	for _, w := range weights {
		total += w.Percent
	}
	if total != Denominator {
		return ErrWeightsShort
	}
	return nil
}

// Shares floors amount*percent/Denominator for each payee. Rounding dust
// stays with the caller so the shares never sum past amount.
func Shares(amount uint64, weights []Weight) ([]Share, error) {
	if err := Validate(weights); err != nil {
		return nil, err
	}
	shares := make([]Share, len(weights))
	for i, w := range weights {
		scaled, err := nativecommon.Mul(amount, w.Percent)
		if err != nil {
			return nil, err
		}
		shares[i] = Share{Payee: w.Payee, Amount: scaled / Denominator}
	}
	return shares, nil
}

// Total sums the share amounts.
func Total(shares []Share) (uint64, error) {
	var total uint64
	for _, s := range shares {
		sum, err := nativecommon.Add(total, s.Amount)
		if err != nil {
			return 0, err
		}
		total = sum
	}
	return total, nil
}

// Package curve prices allocations along a linear bonding curve.
package curve

import (
	coreerrors "launchpad/core/errors"
	nativecommon "launchpad/native/common"
)

// Scale is the fixed-point precision of curve progress (100.00%).
const Scale uint64 = 10_000

var ErrInvalidCurve = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "curve: invalid parameters")

// Params fixes the shape of the curve. They are immutable once a sale is
// initialised.
type Params struct {
	StartRate     uint64
	EndRate       uint64
	AllocationCap uint64
}

// Validate enforces cap > 0, start > 0 and end >= start.
func (p Params) Validate() error {
	if p.AllocationCap == 0 || p.StartRate == 0 || p.EndRate < p.StartRate {
		return ErrInvalidCurve
	}
	return nil
}

// Rate returns the exchange rate after allocated tokens were sold.
func (p Params) Rate(allocated uint64) (uint64, error) {
	return Rate(allocated, p.AllocationCap, p.StartRate, p.EndRate)
}

// Rate computes start + (end-start) * progress / Scale where progress is
// allocated * Scale / cap. Callers must pass the allocation total as it stood
// before the operation being priced.
func Rate(allocated, cap, startRate, endRate uint64) (uint64, error) {
	scaled, err := nativecommon.Mul(allocated, Scale)
	if err != nil {
		return 0, err
	}
	progress, err := nativecommon.Div(scaled, cap)
	if err != nil {
		return 0, err
	}
	span, err := nativecommon.Sub(endRate, startRate)
	if err != nil {
		return 0, err
	}
	increase, err := nativecommon.Mul(span, progress)
	if err != nil {
		return 0, err
	}
	increase, err = nativecommon.Div(increase, Scale)
	if err != nil {
		return 0, err
	}
	return nativecommon.Add(startRate, increase)
}

// Progress reports allocated as a whole percentage of cap.
func Progress(allocated, cap uint64) (uint64, error) {
	scaled, err := nativecommon.Mul(allocated, 100)
	if err != nil {
		return 0, err
	}
	return nativecommon.Div(scaled, cap)
}

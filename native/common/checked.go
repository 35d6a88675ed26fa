package common

import (
	"github.com/holiman/uint256"

	coreerrors "launchpad/core/errors"
)

// Checked arithmetic over uint64. Every helper evaluates in 256 bits and
// rejects results that do not fit back into 64 bits; nothing saturates.

func Add(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, coreerrors.ErrOverflow
	}
	return sum.Uint64(), nil
}

func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, coreerrors.ErrUnderflow
	}
	return new(uint256.Int).Sub(uint256.NewInt(a), uint256.NewInt(b)).Uint64(), nil
}

func Mul(a, b uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !product.IsUint64() {
		return 0, coreerrors.ErrOverflow
	}
	return product.Uint64(), nil
}

func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, coreerrors.ErrDivideByZero
	}
	return a / b, nil
}

// SqrtProduct returns floor(sqrt(a*b)) without overflowing the intermediate product.
func SqrtProduct(a, b uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return new(uint256.Int).Sqrt(product).Uint64()
}

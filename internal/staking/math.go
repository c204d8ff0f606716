// internal/staking/math.go
package staking

import (
	"fmt"

	"github.com/holiman/uint256"
)

var percentBase = uint256.NewInt(100)

// addAmount adds two token amounts, rejecting results that do not fit in u64.
func addAmount(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, fmt.Errorf("%d + %d overflows u64: %w", a, b, ErrInvalidAmount)
	}
	return sum.Uint64(), nil
}

// subReserve subtracts b from a; going below zero is an insufficient reserve.
func subReserve(a, b uint64) (uint64, error) {
	diff, underflow := new(uint256.Int).SubOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if underflow {
		return 0, fmt.Errorf("need %d, have %d: %w", b, a, ErrInsufficientReserve)
	}
	return diff.Uint64(), nil
}

// RewardAmount computes percentage * amount / 100, rounding down.
func RewardAmount(percentage uint8, amount uint64) (uint64, error) {
	r := new(uint256.Int).Mul(uint256.NewInt(uint64(percentage)), uint256.NewInt(amount))
	r.Div(r, percentBase)
	if !r.IsUint64() {
		return 0, fmt.Errorf("reward %d%% of %d overflows u64: %w", percentage, amount, ErrInvalidAmount)
	}
	return r.Uint64(), nil
}

package ledger

import (
	"fmt"
	"math/big"
)

// TinybarsFromHbar converts a decimal HBAR amount to tinybars exactly,
// rejecting negative amounts and sub-tinybar precision
func TinybarsFromHbar(amount string) (int64, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return 0, fmt.Errorf("invalid hbar amount %q", amount)
	}
	if r.Sign() < 0 {
		return 0, fmt.Errorf("negative hbar amount %q", amount)
	}

	r.Mul(r, new(big.Rat).SetInt64(TinybarPerHbar))
	if !r.IsInt() {
		return 0, fmt.Errorf("amount %q has sub-tinybar precision", amount)
	}
	if !r.Num().IsInt64() {
		return 0, fmt.Errorf("amount %q overflows tinybars", amount)
	}
	return r.Num().Int64(), nil
}

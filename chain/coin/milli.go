// Package coin implements the fixed-point coin arithmetic of §4.1: Milli, a
// saturating Coin built on it, and the linear fee policy.
package coin

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

func putUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func getUint64(b []byte) uint64     { return binary.BigEndian.Uint64(b) }

// scale is the number of Milli units per whole coin: Milli represents
// value/1000.
const scale uint64 = 1000

// MaxCoin bounds the total supply representable by a Coin (§3 invariant:
// bonded + unbonded <= MAX_COIN).
const MaxCoin uint64 = 10_000_000_000 * scale

// Milli is a fixed-point scalar: the underlying u64 counts thousandths.
type Milli uint64

// NewMilliFromIntegral builds a Milli from a whole-number value.
func NewMilliFromIntegral(v uint64) Milli { return Milli(v * scale) }

// Add saturates at the u64 max rather than overflowing.
func (m Milli) Add(o Milli) Milli {
	sum := uint64(m) + uint64(o)
	if sum < uint64(m) { // overflowed
		return Milli(^uint64(0))
	}
	return Milli(sum)
}

// Sub saturates at zero rather than underflowing.
func (m Milli) Sub(o Milli) Milli {
	if uint64(o) > uint64(m) {
		return 0
	}
	return Milli(uint64(m) - uint64(o))
}

// Mul computes a*b/1000 in a wider integer to avoid intermediate overflow.
func (m Milli) Mul(o Milli) Milli {
	wide := new(big.Int).Mul(big.NewInt(int64(m)), big.NewInt(int64(o)))
	wide.Div(wide, big.NewInt(int64(scale)))
	if !wide.IsUint64() {
		return Milli(^uint64(0))
	}
	return Milli(wide.Uint64())
}

// Div computes a*1000/b in a wider integer.
func (m Milli) Div(o Milli) Milli {
	if o == 0 {
		return Milli(^uint64(0))
	}
	wide := new(big.Int).Mul(big.NewInt(int64(m)), big.NewInt(int64(scale)))
	wide.Div(wide, big.NewInt(int64(o)))
	if !wide.IsUint64() {
		return Milli(^uint64(0))
	}
	return Milli(wide.Uint64())
}

// Sqrt computes an integer-accurate square root of a Milli value, used by
// the slashing-proportion calculation (§4.9's 1/sqrt(...)).
func (m Milli) Sqrt() Milli {
	// scale the operand up before taking an integer sqrt so the result
	// keeps three decimal digits of precision: sqrt(m/1000) * 1000
	// = sqrt(m * 1000).
	wide := new(big.Int).Mul(big.NewInt(int64(m)), big.NewInt(int64(scale)))
	return Milli(new(big.Int).Sqrt(wide).Uint64())
}

// ToIntegral rounds up to the nearest whole unit.
func (m Milli) ToIntegral() uint64 {
	return (uint64(m) + scale - 1) / scale
}

// ToIntegralTrunc truncates to the nearest whole unit.
func (m Milli) ToIntegralTrunc() uint64 {
	return uint64(m) / scale
}

func (m Milli) String() string {
	whole := uint64(m) / scale
	frac := uint64(m) % scale
	return fmt.Sprintf("%d.%03d", whole, frac)
}

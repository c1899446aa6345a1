package coin

import (
	"fmt"

	chainerrors "github.com/leejw51/mychain/chain/errors"
)

// LinearFee implements fee = constant + coefficient * size_bytes (§4.1).
type LinearFee struct {
	Constant    Milli
	Coefficient Milli
}

// Estimate returns ceil(constant + coefficient*n) as a Coin. Overflow of the
// supply bound is reported as CoinError::OutOfBound equivalent.
func (f LinearFee) Estimate(sizeBytes uint64) (Coin, error) {
	n := NewMilliFromIntegral(sizeBytes)
	milli := f.Constant.Add(f.Coefficient.Mul(n))
	integral := milli.ToIntegral()
	out, err := NewCoin(NewMilliFromIntegral(integral))
	if err != nil {
		return Coin{}, chainerrors.Wrap(chainerrors.KindInvalidInput, err, fmt.Sprintf("fee estimate for %d bytes out of bound", sizeBytes))
	}
	return out, nil
}

package coin

import (
	"fmt"

	chainerrors "github.com/leejw51/mychain/chain/errors"
)

// Coin is the chain's native unit of value: a saturating-checked wrapper
// around Milli, bounded by MaxCoin (§3).
type Coin struct {
	m Milli
}

// Zero is the additive identity.
var Zero = Coin{}

// NewCoin validates a raw Milli amount against the supply bound.
func NewCoin(m Milli) (Coin, error) {
	if uint64(m) > MaxCoin {
		return Coin{}, chainerrors.New(chainerrors.KindInvalidInput, fmt.Sprintf("coin %s exceeds max coin", m))
	}
	return Coin{m: m}, nil
}

// Milli returns the underlying fixed-point value.
func (c Coin) Milli() Milli { return c.m }

// Add sums two coins, failing if the result would exceed MaxCoin (§3).
func (c Coin) Add(o Coin) (Coin, error) {
	return NewCoin(c.m.Add(o.m))
}

// Sub subtracts, saturating at zero (withdrawing more than is present is a
// caller-side bug that validation must catch before this runs).
func (c Coin) Sub(o Coin) Coin {
	return Coin{m: c.m.Sub(o.m)}
}

func (c Coin) LessThan(o Coin) bool    { return c.m < o.m }
func (c Coin) GreaterEqual(o Coin) bool { return c.m >= o.m }
func (c Coin) IsZero() bool            { return c.m == 0 }

func (c Coin) String() string { return c.m.String() }

// GobEncode/GobDecode let Coin round-trip through gob despite its
// unexported field, needed by account.StakingAccount's encoding (§8).
func (c Coin) GobEncode() ([]byte, error) {
	b := make([]byte, 8)
	putUint64(b, uint64(c.m))
	return b, nil
}

func (c *Coin) GobDecode(b []byte) error {
	c.m = Milli(getUint64(b))
	return nil
}

package coin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearFeeEstimate(t *testing.T) {
	fee := LinearFee{
		Constant:    NewMilliFromIntegral(1),
		Coefficient: Milli(1250), // 1.25
	}
	got, err := fee.Estimate(100)
	require.NoError(t, err)
	// 1 + 1.25*100 = 126, ceil -> 126
	require.Equal(t, uint64(126), got.Milli().ToIntegral())
}

func TestCoinAddBound(t *testing.T) {
	a, err := NewCoin(Milli(MaxCoin))
	require.NoError(t, err)
	_, err = a.Add(Coin{m: 1})
	require.Error(t, err)
}

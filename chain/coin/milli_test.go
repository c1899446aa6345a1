package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilliAddSaturates(t *testing.T) {
	max := Milli(^uint64(0))
	assert.Equal(t, max, max.Add(Milli(1)))
}

func TestMilliSubSaturates(t *testing.T) {
	assert.Equal(t, Milli(0), Milli(5).Sub(Milli(10)))
}

func TestMilliMulDivRoundTrip(t *testing.T) {
	a := NewMilliFromIntegral(7)
	b := NewMilliFromIntegral(3)
	got := a.Mul(b).Div(b)
	diff := int64(got) - int64(a)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, int64(1))
}

func TestMilliMulIdentity(t *testing.T) {
	a := NewMilliFromIntegral(42)
	one := NewMilliFromIntegral(1)
	assert.Equal(t, a, a.Mul(one))
}

func TestMilliSqrt(t *testing.T) {
	a := NewMilliFromIntegral(16)
	got := a.Sqrt()
	want := NewMilliFromIntegral(4)
	diff := int64(got) - int64(want)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, int64(1))
}

func TestMilliToIntegral(t *testing.T) {
	assert.Equal(t, uint64(2), Milli(1001).ToIntegral())
	assert.Equal(t, uint64(1), Milli(1001).ToIntegralTrunc())
}

package liveness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitiallyLive(t *testing.T) {
	tr := New(100)
	require.True(t, tr.IsLive(1))
	require.Equal(t, 0, tr.Zeros())
}

func TestUpdateAndIsLive(t *testing.T) {
	tr := New(10)
	for h := uint64(1); h <= 6; h++ {
		tr.Update(h, false)
	}
	require.Equal(t, 6, tr.Zeros())
	require.False(t, tr.IsLive(5))
	require.True(t, tr.IsLive(7))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tr := New(37)
	tr.Update(1, false)
	tr.Update(5, false)

	enc := tr.Encode()
	got, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, tr.Window, got.Window)
	require.Equal(t, tr.Zeros(), got.Zeros())
}

func TestWindowWraps(t *testing.T) {
	tr := New(5)
	tr.Update(1, false)
	tr.Update(6, true) // wraps to same slot as height 1
	require.Equal(t, 0, tr.Zeros())
}

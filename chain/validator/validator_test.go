package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/params"
)

func mustCoin(n uint64) coin.Coin {
	c, _ := coin.NewCoin(coin.NewMilliFromIntegral(n))
	return c
}

func TestRecomputeJailedAlwaysZero(t *testing.T) {
	np := &params.NetworkParameters{RequiredStake: mustCoin(10)}
	u, changed := Recompute(np, mustCoin(100), mustCoin(100), true, []byte("pk"))
	require.True(t, changed)
	require.Equal(t, int64(0), u.Power)
}

func TestRecomputeNewEligibleIncreasing(t *testing.T) {
	np := &params.NetworkParameters{RequiredStake: mustCoin(10)}
	u, changed := Recompute(np, mustCoin(5), mustCoin(20), false, []byte("pk"))
	require.True(t, changed)
	require.Equal(t, int64(20), u.Power)
}

func TestRecomputeDropsBelowRequired(t *testing.T) {
	np := &params.NetworkParameters{RequiredStake: mustCoin(10)}
	u, changed := Recompute(np, mustCoin(20), mustCoin(5), false, []byte("pk"))
	require.True(t, changed)
	require.Equal(t, int64(0), u.Power)
}

func TestRecomputeNoChange(t *testing.T) {
	np := &params.NetworkParameters{RequiredStake: mustCoin(10)}
	_, changed := Recompute(np, mustCoin(5), mustCoin(5), false, []byte("pk"))
	require.False(t, changed)
}

func TestPubkeyUnique(t *testing.T) {
	s := NewSet()
	var a account.Address
	a[0] = 1
	s.Add(a, &account.CouncilNode{Name: "v1", ConsensusPubkey: []byte("pk1")})
	require.False(t, s.PubkeyUnique([]byte("pk1")))
	require.True(t, s.PubkeyUnique([]byte("pk2")))
}

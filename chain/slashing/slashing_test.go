package slashing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
)

func addr(b byte) account.Address {
	var a account.Address
	a[0] = b
	return a
}

func TestMergeTakesMaxRatioAndDominantKind(t *testing.T) {
	s := New()
	a := addr(1)

	s.Merge(a, coin.Milli(100), account.PunishmentNonLive, 1000, 500)
	e, ok := s.Get(a)
	require.True(t, ok)
	require.Equal(t, int64(1500), e.ScheduledFor)

	s.Merge(a, coin.Milli(50), account.PunishmentByzantineFault, 1100, 500)
	e, ok = s.Get(a)
	require.True(t, ok)
	require.Equal(t, coin.Milli(100), e.Ratio)
	require.Equal(t, account.PunishmentByzantineFault, e.Kind)
	// scheduled_for unchanged by the second merge, per §4.6.
	require.Equal(t, int64(1500), e.ScheduledFor)
}

func TestActivateDeductsAndJails(t *testing.T) {
	s := New()
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(100))
	acc := &account.StakingAccount{Address: addr(2), Bonded: bonded}

	s.Merge(acc.Address, coin.Milli(100), account.PunishmentByzantineFault, 0, 10) // ratio 0.1

	slashed, err := Activate(s, acc, 10, 3600)
	require.NoError(t, err)
	require.Equal(t, uint64(10), slashed.Milli().ToIntegral())
	require.Equal(t, uint64(90), acc.Bonded.Milli().ToIntegral())
	require.NotNil(t, acc.JailedUntil)
	require.Equal(t, int64(3610), *acc.JailedUntil)

	_, ok := s.Get(acc.Address)
	require.False(t, ok)
}

func TestDueAt(t *testing.T) {
	s := New()
	s.Merge(addr(1), coin.Milli(10), account.PunishmentNonLive, 0, 100)
	s.Merge(addr(2), coin.Milli(10), account.PunishmentNonLive, 0, 200)

	due := s.DueAt(150)
	require.Len(t, due, 1)
	require.Equal(t, addr(1), due[0])
}

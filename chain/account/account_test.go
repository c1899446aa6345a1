package account

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/coin"
)

func TestStakingAccountRoundTrip(t *testing.T) {
	bonded, err := coin.NewCoin(coin.NewMilliFromIntegral(40))
	require.NoError(t, err)

	acc := &StakingAccount{
		Address: Address{1, 2, 3},
		Nonce:   5,
		Bonded:  bonded,
		CouncilNode: &CouncilNode{
			Name:            "validator-1",
			ConsensusPubkey: []byte{0xde, 0xad, 0xbe, 0xef},
		},
	}

	enc, err := acc.Encode()
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)

	require.Equal(t, acc.Address, got.Address)
	require.Equal(t, acc.Nonce, got.Nonce)
	require.Equal(t, acc.Bonded.Milli(), got.Bonded.Milli())
	require.Equal(t, acc.CouncilNode.Name, got.CouncilNode.Name)
}

func TestIsJailed(t *testing.T) {
	future := int64(100)
	acc := &StakingAccount{JailedUntil: &future}
	require.True(t, acc.IsJailed(50))
	require.False(t, acc.IsJailed(150))

	unjailed := &StakingAccount{}
	require.False(t, unjailed.IsJailed(50))
}

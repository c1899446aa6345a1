package enclave

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/coin"
)

func TestStubDetectsDoubleSpend(t *testing.T) {
	fee, _ := coin.NewCoin(coin.NewMilliFromIntegral(1))
	s := NewStub("test-chain", nil, fee)

	req := ValidateTxRequest{Tx: []byte("transfer-tx-1")}
	resp1, err := s.ValidateTx(req)
	require.NoError(t, err)
	require.True(t, resp1.OK)

	resp2, err := s.ValidateTx(req)
	require.NoError(t, err)
	require.False(t, resp2.OK)
	require.Equal(t, ErrDoubleSpend, resp2.Err)
}

func TestStubCheckChainMismatch(t *testing.T) {
	fee, _ := coin.NewCoin(coin.NewMilliFromIntegral(1))
	s := NewStub("chain-a", nil, fee)

	resp, err := s.CheckChain(CheckChainRequest{ChainHexID: "chain-b"})
	require.NoError(t, err)
	require.False(t, resp.OK)
}

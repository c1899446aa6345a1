package abci

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/enclave"
	"github.com/leejw51/mychain/chain/params"
	"github.com/leejw51/mychain/chain/tx"
	"github.com/leejw51/mychain/storage/database"
)

func testHandler(t *testing.T) (*Handler, *params.NetworkParameters) {
	db := database.NewMemoryDBManager()
	fee, _ := coin.NewCoin(coin.NewMilliFromIntegral(1))
	proxy := enclave.NewStub("test-chain", nil, fee)
	h := New(db, proxy)

	req, _ := coin.NewCoin(coin.NewMilliFromIntegral(1000))
	np := &params.NetworkParameters{
		Fee:             coin.LinearFee{Constant: coin.NewMilliFromIntegral(1)},
		RequiredStake:   req,
		UnbondingPeriod: 100,
		Jailing: params.JailingParams{
			JailDuration:         1000,
			BlockSigningWindow:   10,
			MissedBlockThreshold: 5,
		},
		Slashing: params.SlashingParams{
			LivenessPercent: coin.NewMilliFromIntegral(0) + 100,
			SlashWaitPeriod: 0,
		},
		ChainHexID: "test-chain",
	}
	return h, np
}

func TestInitChainInfoRoundTrip(t *testing.T) {
	h, np := testHandler(t)
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(10))
	addr := account.Address{0x01}

	resp, err := h.InitChain("test-chain", np, []GenesisAccount{
		{Account: account.StakingAccount{Address: addr, Bonded: bonded}},
	}, ConsensusInfo{})
	require.NoError(t, err)
	require.Empty(t, resp.Validators)

	h2, _ := testHandler(t)
	h2.db = h.db
	h2.accounts = h.accounts
	info, err := h2.Info()
	require.NoError(t, err)
	require.Equal(t, int64(0), info.LastBlockHeight)
}

func TestInitChainRejectsConsensusMismatch(t *testing.T) {
	h, np := testHandler(t)
	np.UnbondingMaxAge = 1000
	_, err := h.InitChain("test-chain", np, nil, ConsensusInfo{MaxAgeDuration: 2000})
	require.Error(t, err)
}

func TestDeliverBlockLifecycle(t *testing.T) {
	h, np := testHandler(t)
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(2000))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := tx.DeriveAddress(pub)

	_, err = h.InitChain("test-chain", np, []GenesisAccount{
		{Account: account.StakingAccount{Address: addr, Bonded: bonded}},
	}, ConsensusInfo{})
	require.NoError(t, err)

	_, err = h.BeginBlock(1, 10, nil, nil)
	require.NoError(t, err)

	value, _ := coin.NewCoin(coin.NewMilliFromIntegral(5))
	unsigned := &tx.Tx{Kind: tx.KindUnbondStake, UnbondStake: &tx.UnbondStakeTx{
		StakingAddress: addr,
		Nonce:          0,
		Value:          value,
	}}
	sb, err := tx.SignBytes(unsigned)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, sb)
	unsigned.UnbondStake.Witness = tx.Witness{PublicKey: pub, Signature: sig}
	raw, err := unsigned.Encode()
	require.NoError(t, err)

	deliverResp := h.DeliverTx(raw)
	require.Equal(t, uint32(0), deliverResp.Code)
	require.Len(t, deliverResp.Events, 1)

	endResp, err := h.EndBlock()
	require.NoError(t, err)
	require.NotNil(t, endResp)

	commitResp, err := h.Commit()
	require.NoError(t, err)
	require.NotEmpty(t, commitResp.Data)

	q, err := h.Query(addr, nil)
	require.NoError(t, err)
	updated, err := account.Decode(q.Value)
	require.NoError(t, err)
	require.Equal(t, uint64(1), updated.Nonce)
	require.False(t, updated.Unbonded.IsZero())
}

func TestBeginBlockJailsByzantineEvidence(t *testing.T) {
	h, np := testHandler(t)
	np.Slashing.ByzantinePercent = coin.NewMilliFromIntegral(0) + 500
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(2000))

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := tx.DeriveAddress(pub)

	_, err = h.InitChain("test-chain", np, []GenesisAccount{
		{
			Account:     account.StakingAccount{Address: addr, Bonded: bonded},
			CouncilNode: &account.CouncilNode{ConsensusPubkey: pub},
		},
	}, ConsensusInfo{})
	require.NoError(t, err)

	resp, err := h.BeginBlock(1, 10, nil, []Evidence{{Address: addr}})
	require.NoError(t, err)
	// SlashWaitPeriod is 0, so the slash merged for this fault is already due
	// and activates in the same BeginBlock, after the jailing.
	require.Len(t, resp.Events, 2)
	require.Equal(t, "jail_validators", resp.Events[0].Type)
	require.Equal(t, "account", resp.Events[0].Attributes[0].Key)
	require.Equal(t, "slash_validators", resp.Events[1].Type)

	require.Len(t, h.block.validatorUpdates, 1)
	require.EqualValues(t, 0, h.block.validatorUpdates[0].Power)

	acc := h.block.accounts[addr]
	require.NotNil(t, acc)
	require.NotNil(t, acc.JailedUntil)
	require.Nil(t, acc.CouncilNode)
	require.NotNil(t, acc.Punishment)
	require.Equal(t, account.PunishmentByzantineFault, acc.Punishment.Kind)
}

func TestCheckTxRejectsMalformed(t *testing.T) {
	h, _ := testHandler(t)
	resp := h.CheckTx([]byte{0xFF}, 0)
	require.NotEqual(t, uint32(0), resp.Code)
}

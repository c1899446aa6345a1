package validate

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/enclave"
	"github.com/leejw51/mychain/chain/params"
	"github.com/leejw51/mychain/chain/tx"
	"github.com/leejw51/mychain/chain/utxo"
)

type fakeAccounts struct {
	m map[account.Address]*account.StakingAccount
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{m: map[account.Address]*account.StakingAccount{}}
}

func (f *fakeAccounts) Get(addr account.Address) (*account.StakingAccount, bool, error) {
	a, ok := f.m[addr]
	return a, ok, nil
}

func testParams() *params.NetworkParameters {
	req, _ := coin.NewCoin(coin.NewMilliFromIntegral(1000))
	return &params.NetworkParameters{
		Fee:             coin.LinearFee{Constant: coin.NewMilliFromIntegral(1), Coefficient: 0},
		RequiredStake:   req,
		UnbondingPeriod: 100,
	}
}

func signedTx(t *testing.T, build func(addr account.Address) *tx.Tx) *tx.Tx {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := tx.DeriveAddress(pub)
	built := build(addr)

	sb, err := tx.SignBytes(built)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, sb)
	w := tx.Witness{PublicKey: pub, Signature: sig}

	switch built.Kind {
	case tx.KindUnbondStake:
		built.UnbondStake.Witness = w
	case tx.KindUnjail:
		built.Unjail.Witness = w
	case tx.KindNodeJoin:
		built.NodeJoin.Witness = w
	case tx.KindWithdrawUnbondedStake:
		built.WithdrawUnbondedStake.Witness = w
	}
	return built
}

func TestDispatchUnbondStake(t *testing.T) {
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(50))
	value, _ := coin.NewCoin(coin.NewMilliFromIntegral(10))

	accounts := newFakeAccounts()
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindUnbondStake, UnbondStake: &tx.UnbondStakeTx{
			StakingAddress: a,
			Nonce:          0,
			Value:          value,
		}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, Bonded: bonded, Nonce: 0}

	raw, err := built.Encode()
	require.NoError(t, err)

	res, err := Dispatch(built, ChainInfo{BlockTime: 10}, testParams(), nil, accounts, len(raw))
	require.NoError(t, err)
	require.NotNil(t, res.UpdatedAccount)
	require.Equal(t, uint64(1), res.UpdatedAccount.Nonce)
	require.True(t, res.UpdatedAccount.Bonded.LessThan(bonded))
	require.False(t, res.UpdatedAccount.Unbonded.IsZero())
	require.Equal(t, int64(110), res.UpdatedAccount.UnbondedFrom)
}

func TestDispatchUnbondStakeInsufficientBonded(t *testing.T) {
	bonded, _ := coin.NewCoin(coin.NewMilliFromIntegral(1))
	value, _ := coin.NewCoin(coin.NewMilliFromIntegral(10))

	accounts := newFakeAccounts()
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindUnbondStake, UnbondStake: &tx.UnbondStakeTx{StakingAddress: a, Value: value}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, Bonded: bonded}

	raw, _ := built.Encode()
	_, err := Dispatch(built, ChainInfo{BlockTime: 0}, testParams(), nil, accounts, len(raw))
	require.Error(t, err)
}

func TestDispatchUnjail(t *testing.T) {
	accounts := newFakeAccounts()
	jailedUntil := int64(5)
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindUnjail, Unjail: &tx.UnjailTx{StakingAddress: a}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, JailedUntil: &jailedUntil}

	raw, _ := built.Encode()
	res, err := Dispatch(built, ChainInfo{BlockTime: 10}, testParams(), nil, accounts, len(raw))
	require.NoError(t, err)
	require.Nil(t, res.UpdatedAccount.JailedUntil)
}

func TestDispatchUnjailTooEarly(t *testing.T) {
	accounts := newFakeAccounts()
	jailedUntil := int64(100)
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindUnjail, Unjail: &tx.UnjailTx{StakingAddress: a}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, JailedUntil: &jailedUntil}

	raw, _ := built.Encode()
	_, err := Dispatch(built, ChainInfo{BlockTime: 10}, testParams(), nil, accounts, len(raw))
	require.Error(t, err)
}

func TestDispatchNodeJoin(t *testing.T) {
	np := testParams()
	accounts := newFakeAccounts()
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindNodeJoin, NodeJoin: &tx.NodeJoinTx{
			StakingAddress: a, Name: "validator-1", ConsensusPubkey: []byte("pk"),
		}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, Bonded: np.RequiredStake}

	raw, _ := built.Encode()
	res, err := Dispatch(built, ChainInfo{BlockTime: 0}, np, nil, accounts, len(raw))
	require.NoError(t, err)
	require.NotNil(t, res.UpdatedAccount.CouncilNode)
	require.Equal(t, "validator-1", res.UpdatedAccount.CouncilNode.Name)
}

func TestDispatchNodeJoinInsufficientStake(t *testing.T) {
	np := testParams()
	accounts := newFakeAccounts()
	low, _ := coin.NewCoin(coin.NewMilliFromIntegral(1))
	var addr account.Address
	built := signedTx(t, func(a account.Address) *tx.Tx {
		addr = a
		return &tx.Tx{Kind: tx.KindNodeJoin, NodeJoin: &tx.NodeJoinTx{StakingAddress: a}}
	})
	accounts.m[addr] = &account.StakingAccount{Address: addr, Bonded: low}

	raw, _ := built.Encode()
	_, err := Dispatch(built, ChainInfo{BlockTime: 0}, np, nil, accounts, len(raw))
	require.Error(t, err)
}

type fakeProxy struct {
	validateResp enclave.ValidateTxResponse
}

func (f *fakeProxy) CheckChain(enclave.CheckChainRequest) (enclave.CheckChainResponse, error) {
	return enclave.CheckChainResponse{OK: true}, nil
}
func (f *fakeProxy) ValidateTx(enclave.ValidateTxRequest) (enclave.ValidateTxResponse, error) {
	return f.validateResp, nil
}
func (f *fakeProxy) Encrypt(enclave.EncryptRequest) (enclave.EncryptResponse, error) {
	return enclave.EncryptResponse{OK: true}, nil
}
func (f *fakeProxy) EndBlock(enclave.EndBlockRequest) (enclave.EndBlockResponse, error) {
	return enclave.EndBlockResponse{OK: true}, nil
}

func TestDispatchTransfer(t *testing.T) {
	np := testParams()
	fee, _ := coin.NewCoin(coin.NewMilliFromIntegral(5))
	proxy := &fakeProxy{validateResp: enclave.ValidateTxResponse{OK: true, TxWithOutputs: &enclave.TxWithOutputs{Fee: fee}}}

	var txid utxo.TxID
	txid[0] = 0x02
	built := &tx.Tx{Kind: tx.KindTransfer, Transfer: &tx.TransferTx{
		Inputs: []utxo.TxoPointer{{TxID: txid, Index: 0}},
	}}
	raw, _ := built.Encode()

	res, err := Dispatch(built, ChainInfo{BlockTime: 0}, np, proxy, nil, len(raw))
	require.NoError(t, err)
	require.Equal(t, fee, res.Fee)
	require.Len(t, res.SpendInputs, 1)
}

func TestDispatchTransferRejectedByEnclave(t *testing.T) {
	np := testParams()
	proxy := &fakeProxy{validateResp: enclave.ValidateTxResponse{OK: false}}
	built := &tx.Tx{Kind: tx.KindTransfer, Transfer: &tx.TransferTx{}}
	raw, _ := built.Encode()

	_, err := Dispatch(built, ChainInfo{BlockTime: 0}, np, proxy, nil, len(raw))
	require.Error(t, err)
}

func TestDispatchDepositStake(t *testing.T) {
	np := testParams()
	input, _ := coin.NewCoin(coin.NewMilliFromIntegral(20))
	proxy := &fakeProxy{validateResp: enclave.ValidateTxResponse{OK: true, DepositStake: &enclave.DepositStakeTxPayload{InputCoins: input}}}

	accounts := newFakeAccounts()
	var target account.Address
	target[0] = 0x09

	built := &tx.Tx{Kind: tx.KindDepositStake, DepositStake: &tx.DepositStakeTx{ToStakingAddress: target}}
	raw, _ := built.Encode()

	res, err := Dispatch(built, ChainInfo{BlockTime: 0}, np, proxy, accounts, len(raw))
	require.NoError(t, err)
	require.NotNil(t, res.UpdatedAccount)
	require.Equal(t, uint64(1), res.UpdatedAccount.Nonce)
	require.False(t, res.UpdatedAccount.Bonded.IsZero())
}

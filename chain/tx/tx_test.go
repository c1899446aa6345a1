package tx

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/utxo"
)

func TestUnbondStakeTxRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := DeriveAddress(pub)

	val, _ := coin.NewCoin(coin.NewMilliFromIntegral(10))
	unsigned := &Tx{Kind: KindUnbondStake, UnbondStake: &UnbondStakeTx{
		StakingAddress: addr,
		Nonce:          3,
		Value:          val,
	}}
	sb, err := SignBytes(unsigned)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, sb)
	unsigned.UnbondStake.Witness = Witness{PublicKey: pub, Signature: sig}

	raw, err := unsigned.Encode()
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, KindUnbondStake, got.Kind)
	require.Equal(t, addr, got.UnbondStake.StakingAddress)
	require.Equal(t, uint64(3), got.UnbondStake.Nonce)

	require.NoError(t, Verify(got.UnbondStake.Witness, sb, addr))
}

func TestTransferTxRoundTrip(t *testing.T) {
	var txid utxo.TxID
	txid[0] = 0x01
	out, _ := coin.NewCoin(coin.NewMilliFromIntegral(5))
	transfer := &Tx{Kind: KindTransfer, Transfer: &TransferTx{
		Inputs:  []utxo.TxoPointer{{TxID: txid, Index: 0}},
		Outputs: []utxo.TxOut{{Value: out}},
	}}
	raw, err := transfer.Encode()
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, got.Transfer.Inputs, 1)
	require.Len(t, got.Transfer.Outputs, 1)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.Error(t, err)
}

func TestVerifyRejectsWrongAddress(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	other, _, _ := ed25519.GenerateKey(nil)
	msg := []byte("hello")
	sig := ed25519.Sign(priv, msg)
	w := Witness{PublicKey: pub, Signature: sig}
	require.Error(t, Verify(w, msg, DeriveAddress(other)))
}

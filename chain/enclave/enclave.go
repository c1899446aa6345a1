// Package enclave defines the request/response contract used to forward
// validation/encryption requests to the transaction-validation enclave and
// interpret its responses (§4.7). The enclave's SGX internals and its
// authentication/framing are out of scope (§1 Non-goals); only the
// interface and wire messages are specified here.
package enclave

import (
	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
)

// ErrorKind classifies an enclave rejection (§4.7).
type ErrorKind uint8

const (
	ErrInvalidTx ErrorKind = iota
	ErrDoubleSpend
	ErrChainMismatch
	ErrEnclaveInternal
)

// CheckChainRequest asks the enclave to confirm it agrees on chain identity
// and last app hash, issued once at startup (§4.7).
type CheckChainRequest struct {
	ChainHexID  string
	LastAppHash []byte // nil if no prior state
}

// CheckChainResponse reports the enclave's view of the last app hash, or an
// error if it disagrees (§4.7).
type CheckChainResponse struct {
	OK      bool
	AppHash []byte
	Err     ErrorKind
}

// TxInfo carries the per-call context a validation needs: block time and
// chain hex id, independent of any specific transaction field.
type TxInfo struct {
	ChainHexID string
	BlockTime  int64
}

// ValidateTxRequest forwards a UTXO-touching transaction for enclave-side
// validation (§4.7, §4.8).
type ValidateTxRequest struct {
	Tx            []byte // serialized wire transaction
	Info          TxInfo
	PriorAccount  *account.StakingAccount // set for DepositStakeTx/WithdrawUnbondedStakeTx
}

// TxWithOutputs is the enclave's payload for TransferTx/DepositStakeTx-style
// validations: a fee and the sealed (obfuscated) transaction for inclusion
// (§4.7).
type TxWithOutputs struct {
	Fee      coin.Coin
	SealedTx []byte
}

// DepositStakeTxPayload reports the sum of the deposit's verified input
// coins, from which DeliverTx computes the bonded credit (§4.7, §4.8).
type DepositStakeTxPayload struct {
	InputCoins coin.Coin
}

// ValidateTxResponse carries one of the enclave's validation payloads, or a
// rejection (§4.7).
type ValidateTxResponse struct {
	OK            bool
	Err           ErrorKind
	TxWithOutputs *TxWithOutputs
	DepositStake  *DepositStakeTxPayload
}

// EncryptRequest asks the enclave to seal (obfuscate) a signed transaction
// before it enters the mempool/block (§4.7).
type EncryptRequest struct {
	SignedTx []byte
}

// EncryptResponse carries the obfuscated transaction bytes (§4.7).
type EncryptResponse struct {
	OK            bool
	Err           ErrorKind
	ObfuscatedTx  []byte
}

// EndBlockRequest forwards the end-of-block filter request (§4.7, §4.9).
type EndBlockRequest struct {
	Height int64
}

// EndBlockResponse optionally carries a block filter the enclave computed
// independently. chain/abci emits it, when present, as the block_filter
// event; chain/abci keeps no block filter of its own, so the enclave's
// filter is not merged with one.
type EndBlockResponse struct {
	OK          bool
	Err         ErrorKind
	BlockFilter []byte // nil if the enclave has nothing to add
}

// Proxy is the capability set the state machine uses to reach the
// transaction-validation enclave (§4.7, §9's "polymorphic capability").
// Tests substitute an in-process Stub.
type Proxy interface {
	CheckChain(req CheckChainRequest) (CheckChainResponse, error)
	ValidateTx(req ValidateTxRequest) (ValidateTxResponse, error)
	Encrypt(req EncryptRequest) (EncryptResponse, error)
	EndBlock(req EndBlockRequest) (EndBlockResponse, error)
}

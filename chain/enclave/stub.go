package enclave

import (
	"sync"

	"github.com/leejw51/mychain/chain/coin"
)

// Stub is an in-process Proxy substitute for tests (§9's "tests must be
// able to substitute an in-process stub"). It tracks spent outpoints itself
// so double-spend scenarios (§8 scenario 6) can be exercised without a real
// enclave.
type Stub struct {
	mu          sync.Mutex
	spent       map[string]bool
	fee         coin.Coin
	chainHexID  string
	lastAppHash []byte
}

// NewStub builds a stub that always validates with a fixed fee and agrees
// with the given chain id / last app hash at CheckChain.
func NewStub(chainHexID string, lastAppHash []byte, fee coin.Coin) *Stub {
	return &Stub{
		spent:       make(map[string]bool),
		fee:         fee,
		chainHexID:  chainHexID,
		lastAppHash: lastAppHash,
	}
}

func (s *Stub) CheckChain(req CheckChainRequest) (CheckChainResponse, error) {
	if req.ChainHexID != s.chainHexID {
		return CheckChainResponse{OK: false, Err: ErrChainMismatch}, nil
	}
	return CheckChainResponse{OK: true, AppHash: s.lastAppHash}, nil
}

// MarkSpentForTest lets a test pre-seed the stub's spent set.
func (s *Stub) MarkSpentForTest(outpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spent[outpoint] = true
}

func (s *Stub) ValidateTx(req ValidateTxRequest) (ValidateTxResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outpoint := string(req.Tx) // the stub treats the raw tx bytes as the spend key
	if s.spent[outpoint] {
		return ValidateTxResponse{OK: false, Err: ErrDoubleSpend}, nil
	}
	s.spent[outpoint] = true

	if req.PriorAccount != nil {
		return ValidateTxResponse{OK: true, DepositStake: &DepositStakeTxPayload{InputCoins: s.fee}}, nil
	}
	return ValidateTxResponse{OK: true, TxWithOutputs: &TxWithOutputs{Fee: s.fee, SealedTx: req.Tx}}, nil
}

func (s *Stub) Encrypt(req EncryptRequest) (EncryptResponse, error) {
	return EncryptResponse{OK: true, ObfuscatedTx: req.SignedTx}, nil
}

func (s *Stub) EndBlock(req EndBlockRequest) (EndBlockResponse, error) {
	return EndBlockResponse{OK: true}, nil
}

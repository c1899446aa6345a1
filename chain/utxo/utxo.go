// Package utxo implements the transfer-output set and its spend-map
// (§3, §4.4): each transaction id maps to a bitset marking which outputs
// have been spent. Grounded on the teacher's TX_META-style indexed lookup
// tables (storage/database/db_manager.go's tx-lookup accessors),
// generalized from a single lookup value per tx to a per-tx bitset.
package utxo

import (
	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/storage/database"
)

// TxID identifies a transaction whose outputs may be spent.
type TxID [32]byte

// TxOut is a single unspent transaction output (§3).
type TxOut struct {
	Address  account.Address
	Value    coin.Coin
	ValidFrom *int64
}

// TxoPointer references one output of a transaction (§3).
type TxoPointer struct {
	TxID  TxID
	Index uint16
}

// SpendMap is a keyed store mapping a transaction id to a bitset of spent
// output indices (§4.4).
type SpendMap struct {
	db database.DBManager
}

// New wraps a DBManager for spend-bit lookups.
func New(db database.DBManager) *SpendMap {
	return &SpendMap{db: db}
}

func bitsetBytes(numOutputs int) int { return (numOutputs + 7) / 8 }

func (s *SpendMap) load(txID TxID, numOutputs int) ([]byte, error) {
	raw, err := s.db.Get(database.TxMetaDB, txID[:])
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return make([]byte, bitsetBytes(numOutputs)), nil
	}
	return raw, nil
}

// IsSpent reports whether output index of txID has already been spent.
func (s *SpendMap) IsSpent(txID TxID, index uint16, numOutputs int) (bool, error) {
	bits, err := s.load(txID, numOutputs)
	if err != nil {
		return false, err
	}
	byteIdx := int(index) / 8
	if byteIdx >= len(bits) {
		return false, nil
	}
	bitIdx := uint(int(index) % 8)
	return bits[byteIdx]&(1<<bitIdx) != 0, nil
}

// MarkSpent sets the spend bit for the given output, buffering the write
// into batch rather than writing it directly — the caller flushes batch at
// Commit (§4.4, §4.9).
func (s *SpendMap) MarkSpent(batch database.Batch, txID TxID, index uint16, numOutputs int) error {
	bits, err := s.load(txID, numOutputs)
	if err != nil {
		return err
	}
	byteIdx := int(index) / 8
	if byteIdx >= len(bits) {
		grown := make([]byte, byteIdx+1)
		copy(grown, bits)
		bits = grown
	}
	bitIdx := uint(int(index) % 8)
	bits[byteIdx] |= 1 << bitIdx
	return batch.Put(txID[:], bits)
}

// Package account implements the StakingAccount record of §3 and its
// canonical encoding for trie storage. Grounded on the teacher's account
// model (blockchain/state/account_common.go) generalized from an
// Ethereum-style balance/nonce/code account to a bonded/unbonded staking
// position.
package account

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"

	"github.com/leejw51/mychain/chain/coin"
)

// Address is the 20-byte staking-address identifier derived from a public key.
type Address [20]byte

// PunishmentKind ranks the dominant reason an account was punished; higher
// values dominate lower ones when a schedule is merged (§4.6).
type PunishmentKind uint8

const (
	PunishmentNonLive PunishmentKind = iota
	PunishmentByzantineFault
)

// Punishment records why and how an account was last slashed (§3).
type Punishment struct {
	Kind         PunishmentKind
	JailedUntil  int64
	SlashAmount  *coin.Coin
}

// CouncilNode binds a staking account to a validator identity (§3).
type CouncilNode struct {
	Name             string
	SecurityContact  string
	ConsensusPubkey  []byte
}

// StakingAccount is the authoritative record of a stake position (§3).
type StakingAccount struct {
	Address      Address
	Nonce        uint64
	Bonded       coin.Coin
	Unbonded     coin.Coin
	UnbondedFrom int64
	JailedUntil  *int64
	Punishment   *Punishment
	CouncilNode  *CouncilNode
}

// IsJailed reports whether the account is presently jailed at blockTime.
func (a *StakingAccount) IsJailed(blockTime int64) bool {
	return a.JailedUntil != nil && *a.JailedUntil > 0 && blockTime < *a.JailedUntil
}

// TrieKey derives the 32-byte trie key from the staking address (§4.3):
// keys are the hash of the address, not the address itself, so the trie
// stays balanced regardless of address distribution.
func TrieKey(addr Address) [32]byte {
	return sha256.Sum256(addr[:])
}

// Encode produces the canonical on-disk encoding of the account, used as
// the trie leaf value and for round-trip persistence (§8 round-trip
// property).
func (a *StakingAccount) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(b []byte) (*StakingAccount, error) {
	var a StakingAccount
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

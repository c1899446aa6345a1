// Package validator tracks council-node validator identities and voting
// power, and implements the §4.9 recomputation rule applied on every
// bonded-balance mutation. Grounded on the teacher's weighted Istanbul
// validator set (consensus/istanbul/validator/weighted.go), narrowed from a
// general proposer-selection council to plain address/pubkey/power
// bookkeeping — proposer selection itself belongs to the consensus engine,
// out of scope per §1.
package validator

import (
	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/params"
)

// Update is one entry of the validator-set diff EndBlock hands to
// consensus (§4.9): power 0 evicts.
type Update struct {
	ConsensusPubkey []byte
	Power           int64
}

// VotingPower maps bonded stake to an integer voting power. Bonded is
// already bounded by MaxCoin, so truncating to the integral whole-coin
// count is a deterministic, overflow-free power metric.
func VotingPower(bonded coin.Coin) int64 {
	return int64(bonded.Milli().ToIntegralTrunc())
}

// Recompute implements §4.9's voting-power recomputation rule for one
// account mutation. oldBonded/newBonded are the account's bonded balance
// before and after the mutation; jailed reflects the account's jailed
// status after the mutation. It returns (update, changed): changed is
// false when no validator-set diff is warranted.
func Recompute(np *params.NetworkParameters, oldBonded, newBonded coin.Coin, jailed bool, pubkey []byte) (Update, bool) {
	if jailed {
		return Update{ConsensusPubkey: pubkey, Power: 0}, true
	}

	oldEligible := oldBonded.GreaterEqual(np.RequiredStake)
	newEligible := newBonded.GreaterEqual(np.RequiredStake)

	switch {
	case newEligible && newBonded.Milli() > oldBonded.Milli():
		return Update{ConsensusPubkey: pubkey, Power: VotingPower(newBonded)}, true
	case oldEligible && newBonded.Milli() < oldBonded.Milli():
		return Update{ConsensusPubkey: pubkey, Power: 0}, true
	default:
		return Update{}, false
	}
}

// Set is the in-memory registry of council nodes, keyed by staking address.
type Set struct {
	nodes map[account.Address]*account.CouncilNode
}

// NewSet returns an empty council-node registry.
func NewSet() *Set {
	return &Set{nodes: make(map[account.Address]*account.CouncilNode)}
}

// Add registers addr's council-node binding (NodeJoinTx's effect, §4.8).
func (s *Set) Add(addr account.Address, n *account.CouncilNode) {
	s.nodes[addr] = n
}

// Get looks up a council node by staking address.
func (s *Set) Get(addr account.Address) (*account.CouncilNode, bool) {
	n, ok := s.nodes[addr]
	return n, ok
}

// All returns every registered council node, for snapshotting at Commit.
func (s *Set) All() map[account.Address]*account.CouncilNode {
	return s.nodes
}

// PubkeyUnique reports whether consensusPubkey is not already bound to a
// different council node (§4.8's NodeJoinTx uniqueness check).
func (s *Set) PubkeyUnique(consensusPubkey []byte) bool {
	for _, n := range s.nodes {
		if bytesEqual(n.ConsensusPubkey, consensusPubkey) {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

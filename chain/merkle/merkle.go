// Package merkle implements the balanced binary Merkle tree over
// transaction ids and the four-way application hash assembly (§4.2).
package merkle

import "crypto/sha256"

// Hash is a fixed-width 256-bit digest.
type Hash [32]byte

// emptyRoot is the sentinel root of an empty tree.
var emptyRoot = sha256.Sum256([]byte("mychain-empty-merkle-root"))

func hashLeaf(b []byte) Hash {
	h := sha256.Sum256(append([]byte{0x00}, b...))
	return h
}

func hashNode(l, r Hash) Hash {
	buf := make([]byte, 0, 65)
	buf = append(buf, 0x01)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return sha256.Sum256(buf)
}

// Tree is a balanced binary Merkle tree over the hashes of leaf items.
type Tree struct {
	leaves []Hash
}

// New builds a Tree over the raw byte encodings of items (e.g. tx ids).
func New(items [][]byte) *Tree {
	t := &Tree{leaves: make([]Hash, len(items))}
	for i, it := range items {
		t.leaves[i] = hashLeaf(it)
	}
	return t
}

// Root computes the Merkle root, returning the sentinel for an empty tree.
func (t *Tree) Root() Hash {
	if len(t.leaves) == 0 {
		return emptyRoot
	}
	level := append([]Hash(nil), t.leaves...)
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashNode(level[i], level[i+1]))
			} else {
				// odd node out is promoted by duplicating it, the standard
				// balanced-tree convention.
				next = append(next, hashNode(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// AppHash assembles the application root hash from its four fixed-width
// children: H(txs_root || account_root || rewards_pool_hash || network_params_hash).
func AppHash(txsRoot, accountRoot, rewardsPoolHash, networkParamsHash Hash) Hash {
	buf := make([]byte, 0, 128)
	buf = append(buf, txsRoot[:]...)
	buf = append(buf, accountRoot[:]...)
	buf = append(buf, rewardsPoolHash[:]...)
	buf = append(buf, networkParamsHash[:]...)
	return sha256.Sum256(buf)
}

// HashBytes is a convenience 256-bit hash of an arbitrary byte slice, used
// to derive the rewards-pool and network-params child hashes from their
// canonical encodings.
func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

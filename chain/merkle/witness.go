package merkle

// WitnessTree is a Merkle tree over the public keys of an m-of-n multi-sig
// witness set, with path proofs of a key's membership in the committed set.
// No transaction kind in chain/tx carries such a proof: each tx witness
// holds a single public key and signature (chain/tx.Witness). Grounded on
// chain-core's witness tree (original_source/chain-core/src/tx/witness/tree.rs),
// reworked here as a path-proof Merkle tree rather than a parity-codec type.
type WitnessTree struct {
	leaves []Hash
	pubkeys [][]byte
}

// NewWitnessTree builds a tree over raw public keys.
func NewWitnessTree(pubkeys [][]byte) *WitnessTree {
	t := &WitnessTree{pubkeys: pubkeys}
	for _, pk := range pubkeys {
		t.leaves = append(t.leaves, hashLeaf(pk))
	}
	return t
}

// Root is the committed root of the public-key set.
func (t *WitnessTree) Root() Hash {
	tree := &Tree{leaves: t.leaves}
	return tree.Root()
}

// Proof is a Merkle inclusion proof: the sibling hash at each level and
// whether that sibling is the right-hand child.
type Proof struct {
	Siblings []Hash
	IsRight  []bool
}

// ProveIndex builds an inclusion proof for the pubkey at index i.
func (t *WitnessTree) ProveIndex(i int) Proof {
	level := append([]Hash(nil), t.leaves...)
	idx := i
	var p Proof
	for len(level) > 1 {
		var sib Hash
		var isRight bool
		if idx%2 == 0 {
			if idx+1 < len(level) {
				sib = level[idx+1]
			} else {
				sib = level[idx]
			}
			isRight = true
		} else {
			sib = level[idx-1]
			isRight = false
		}
		p.Siblings = append(p.Siblings, sib)
		p.IsRight = append(p.IsRight, isRight)

		next := make([]Hash, 0, (len(level)+1)/2)
		for j := 0; j < len(level); j += 2 {
			if j+1 < len(level) {
				next = append(next, hashNode(level[j], level[j+1]))
			} else {
				next = append(next, hashNode(level[j], level[j]))
			}
		}
		level = next
		idx /= 2
	}
	return p
}

// VerifyProof checks that leaf (hash of a pubkey) combines with the proof
// path to the given root.
func VerifyProof(leaf Hash, p Proof, root Hash) bool {
	cur := leaf
	for i, sib := range p.Siblings {
		if p.IsRight[i] {
			cur = hashNode(cur, sib)
		} else {
			cur = hashNode(sib, cur)
		}
	}
	return cur == root
}

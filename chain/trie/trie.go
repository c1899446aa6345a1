// Package trie implements the sparse persistent Merkle-patricia account
// store of §4.3: insert(prev_root?, keys, values) -> new_root,
// insert_one(prev_root?, key, value) -> new_root, get(root, key) -> value?.
// Insertions are copy-on-write: every prior root stays queryable as long as
// its nodes remain in the backing store. Grounded on the teacher's
// blockchain/state/database.go cachingDB (root-addressable, LRU-cached,
// SecureTrie-backed accounts), generalized here to a 256-deep binary sparse
// Merkle tree over the 32-byte staking-address hash keys of §4.3, since the
// teacher's underlying statedb.SecureTrie implementation is not part of the
// retrieved reference material.
package trie

import (
	"crypto/sha256"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"

	chainlog "github.com/leejw51/mychain/chain/log"
	"github.com/leejw51/mychain/storage/database"
)

var logger = chainlog.NewModuleLogger(chainlog.Trie)

// Depth is the number of bits in a trie key (32 bytes).
const Depth = 256

// Root is the 32-byte digest identifying a trie state.
type Root [32]byte

var emptyHashes [Depth + 1]Root

func init() {
	emptyHashes[0] = sha256.Sum256([]byte("mychain-trie-empty-leaf"))
	for d := 1; d <= Depth; d++ {
		emptyHashes[d] = hashPair(emptyHashes[d-1], emptyHashes[d-1])
	}
}

// EmptyRoot is the root of a trie with no entries.
func EmptyRoot() Root { return emptyHashes[Depth] }

func hashPair(l, r Root) Root {
	buf := make([]byte, 0, 64)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return sha256.Sum256(buf)
}

func bitAt(key [32]byte, i int) byte {
	byteIdx := i / 8
	bitIdx := 7 - (i % 8)
	return (key[byteIdx] >> uint(bitIdx)) & 1
}

const (
	branchPrefix = "b:"
	leafPrefix   = "l:"
)

// Trie is a handle onto the account store backed by a KV manager. A nodeCache
// absorbs repeated branch reads within and across calls, mirroring the
// teacher's hashicorp/golang-lru-backed code-size cache; leafCache is a
// byte-slice-keyed fastcache in front of the leaf-value reads Query repeats
// every block, mirroring the teacher's fastcache-backed trie database
// read-cache (blockchain/state/database.go's cleans/dirties caches).
type Trie struct {
	db        database.DBManager
	nodeCache *lru.Cache
	leafCache *fastcache.Cache
}

// New wraps a DBManager with the trie's node and leaf caches.
func New(db database.DBManager) *Trie {
	cache, err := lru.New(65536)
	if err != nil {
		logger.Crit("failed to allocate trie node cache", "err", err)
	}
	return &Trie{db: db, nodeCache: cache, leafCache: fastcache.New(16 * 1024 * 1024)}
}

type branchNode struct {
	left, right Root
}

func (t *Trie) readBranch(h Root) (branchNode, error) {
	if h == emptyHashes[Depth] {
		return branchNode{left: emptyHashes[Depth-1], right: emptyHashes[Depth-1]}, nil
	}
	for d := 1; d < Depth; d++ {
		if h == emptyHashes[d] {
			return branchNode{left: emptyHashes[d-1], right: emptyHashes[d-1]}, nil
		}
	}
	if v, ok := t.nodeCache.Get(h); ok {
		return v.(branchNode), nil
	}
	raw, err := t.db.Get(database.AccountTriePagesDB, append([]byte(branchPrefix), h[:]...))
	if err != nil {
		return branchNode{}, err
	}
	if len(raw) != 64 {
		return branchNode{}, fmt.Errorf("trie: corrupt branch node for root %x", h)
	}
	var n branchNode
	copy(n.left[:], raw[:32])
	copy(n.right[:], raw[32:])
	t.nodeCache.Add(h, n)
	return n, nil
}

func (t *Trie) writeBranch(b database.Batch, h Root, n branchNode) {
	raw := make([]byte, 64)
	copy(raw[:32], n.left[:])
	copy(raw[32:], n.right[:])
	_ = b.Put(append([]byte(branchPrefix), h[:]...), raw)
	t.nodeCache.Add(h, n)
}

// Get reads the value stored at key under root, or (nil, false) if absent.
func (t *Trie) Get(root Root, key [32]byte) ([]byte, bool, error) {
	cur := root
	for d := 0; d < Depth; d++ {
		if cur == emptyHashes[Depth-d] {
			return nil, false, nil
		}
		n, err := t.readBranch(cur)
		if err != nil {
			return nil, false, err
		}
		if bitAt(key, d) == 0 {
			cur = n.left
		} else {
			cur = n.right
		}
	}
	if cur == emptyHashes[0] {
		return nil, false, nil
	}
	if v, ok := t.leafCache.HasGet(nil, cur[:]); ok {
		return v, true, nil
	}
	v, err := t.db.Get(database.AccountTriePagesDB, append([]byte(leafPrefix), cur[:]...))
	if err != nil {
		return nil, false, err
	}
	if v != nil {
		t.leafCache.Set(append([]byte(nil), cur[:]...), v)
	}
	return v, v != nil, nil
}

// InsertOne writes a single key/value against prevRoot and returns the new
// root. The write is copy-on-write: prevRoot and every root reachable from
// it remain queryable afterward.
func (t *Trie) InsertOne(prevRoot Root, key [32]byte, value []byte) (Root, error) {
	batch := t.db.NewBatch(database.AccountTriePagesDB)
	newRoot, err := t.insert(batch, prevRoot, key, value, 0)
	if err != nil {
		return Root{}, err
	}
	if err := batch.Write(); err != nil {
		return Root{}, err
	}
	return newRoot, nil
}

// Insert applies a batch of key/value pairs against prevRoot atomically,
// returning the final new root.
func (t *Trie) Insert(prevRoot Root, keys [][32]byte, values [][]byte) (Root, error) {
	if len(keys) != len(values) {
		return Root{}, fmt.Errorf("trie: keys/values length mismatch")
	}
	batch := t.db.NewBatch(database.AccountTriePagesDB)
	root := prevRoot
	var err error
	for i := range keys {
		root, err = t.insert(batch, root, keys[i], values[i], 0)
		if err != nil {
			return Root{}, err
		}
	}
	if err := batch.Write(); err != nil {
		return Root{}, err
	}
	return root, nil
}

func (t *Trie) insert(batch database.Batch, cur Root, key [32]byte, value []byte, depth int) (Root, error) {
	if depth == Depth {
		lh := sha256.Sum256(value)
		_ = batch.Put(append([]byte(leafPrefix), lh[:]...), value)
		t.leafCache.Set(append([]byte(nil), lh[:]...), value)
		return lh, nil
	}
	n, err := t.readBranch(cur)
	if err != nil {
		return Root{}, err
	}
	if bitAt(key, depth) == 0 {
		newLeft, err := t.insert(batch, n.left, key, value, depth+1)
		if err != nil {
			return Root{}, err
		}
		n.left = newLeft
	} else {
		newRight, err := t.insert(batch, n.right, key, value, depth+1)
		if err != nil {
			return Root{}, err
		}
		n.right = newRight
	}
	newHash := hashPair(n.left, n.right)
	t.writeBranch(batch, newHash, n)
	return newHash, nil
}

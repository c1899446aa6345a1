package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTreeSentinel(t *testing.T) {
	tree := New(nil)
	assert.Equal(t, emptyRoot, tree.Root())
}

func TestTreeDeterministic(t *testing.T) {
	items := [][]byte{[]byte("tx1"), []byte("tx2"), []byte("tx3")}
	a := New(items).Root()
	b := New(items).Root()
	assert.Equal(t, a, b)
}

func TestAppHashFourChildren(t *testing.T) {
	txs := HashBytes([]byte("txs"))
	acct := HashBytes([]byte("acct"))
	pool := HashBytes([]byte("pool"))
	params := HashBytes([]byte("params"))
	h1 := AppHash(txs, acct, pool, params)
	h2 := AppHash(txs, acct, pool, params)
	assert.Equal(t, h1, h2)

	h3 := AppHash(acct, txs, pool, params)
	assert.NotEqual(t, h1, h3)
}

func TestWitnessTreeProof(t *testing.T) {
	pubkeys := [][]byte{[]byte("pk1"), []byte("pk2"), []byte("pk3"), []byte("pk4")}
	wt := NewWitnessTree(pubkeys)
	root := wt.Root()
	for i, pk := range pubkeys {
		p := wt.ProveIndex(i)
		require.True(t, VerifyProof(hashLeaf(pk), p, root))
	}
}

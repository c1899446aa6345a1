package trie

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/storage/database"
)

func key(s string) [32]byte { return sha256.Sum256([]byte(s)) }

func TestEmptyTrieGetMiss(t *testing.T) {
	tr := New(database.NewMemoryDBManager())
	_, ok, err := tr.Get(EmptyRoot(), key("alice"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertOneAndGet(t *testing.T) {
	tr := New(database.NewMemoryDBManager())
	root, err := tr.InsertOne(EmptyRoot(), key("alice"), []byte("account-alice"))
	require.NoError(t, err)

	v, ok, err := tr.Get(root, key("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "account-alice", string(v))
}

func TestPriorRootsStayQueryable(t *testing.T) {
	tr := New(database.NewMemoryDBManager())
	root1, err := tr.InsertOne(EmptyRoot(), key("alice"), []byte("v1"))
	require.NoError(t, err)

	root2, err := tr.InsertOne(root1, key("alice"), []byte("v2"))
	require.NoError(t, err)
	require.NotEqual(t, root1, root2)

	v1, ok, err := tr.Get(root1, key("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(v1))

	v2, ok, err := tr.Get(root2, key("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(v2))
}

func TestInsertBatch(t *testing.T) {
	tr := New(database.NewMemoryDBManager())
	keys := [][32]byte{key("a"), key("b"), key("c")}
	values := [][]byte{[]byte("1"), []byte("2"), []byte("3")}

	root, err := tr.Insert(EmptyRoot(), keys, values)
	require.NoError(t, err)

	for i, k := range keys {
		v, ok, err := tr.Get(root, k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, values[i], v)
	}
}

package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryDBManagerColumnFamiliesIsolated(t *testing.T) {
	m := NewMemoryDBManager()
	defer m.Close()

	require.NoError(t, m.Put(NodeInfoDB, []byte("k"), []byte("node-info-value")))
	require.NoError(t, m.Put(ExtraDB, []byte("k"), []byte("extra-value")))

	v1, err := m.Get(NodeInfoDB, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, "node-info-value", string(v1))

	v2, err := m.Get(ExtraDB, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, "extra-value", string(v2))
}

func TestBatchAtomicWrite(t *testing.T) {
	m := NewMemoryDBManager()
	defer m.Close()

	b := m.NewBatch(AccountTriePagesDB)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Write())

	has, err := m.Has(AccountTriePagesDB, []byte("a"))
	require.NoError(t, err)
	require.True(t, has)
}

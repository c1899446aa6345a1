package utxo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leejw51/mychain/storage/database"
)

func TestSpendMapDoubleSpendDetection(t *testing.T) {
	db := database.NewMemoryDBManager()
	sm := New(db)

	var txID TxID
	txID[0] = 0xAA

	spent, err := sm.IsSpent(txID, 0, 2)
	require.NoError(t, err)
	require.False(t, spent)

	batch := db.NewBatch(database.TxMetaDB)
	require.NoError(t, sm.MarkSpent(batch, txID, 0, 2))
	require.NoError(t, batch.Write())

	spent, err = sm.IsSpent(txID, 0, 2)
	require.NoError(t, err)
	require.True(t, spent)

	spent, err = sm.IsSpent(txID, 1, 2)
	require.NoError(t, err)
	require.False(t, spent)
}

// Package database implements the column-family key-value store backing
// the state machine (§6 Persisted state layout): NODE_INFO, EXTRA, TX_META,
// MERKLE_TRANSACTIONS, and ACCOUNT_TRIE_PAGES, each an independently
// addressable DBEntryType over a shared physical backend. Grounded on the
// teacher's storage/database package (db_manager.go, badger_database.go,
// leveldb_database.go), generalized from klaytn's header/body/receipt
// column families to this chain's staking/UTXO/trie layout.
package database

import chainlog "github.com/leejw51/mychain/chain/log"

var logger = chainlog.NewModuleLogger(chainlog.StorageDatabase)

// Putter is satisfied by anything that can receive key/value writes,
// matching the teacher's Putter used by trie proofs.
type Putter interface {
	Put(key, value []byte) error
}

// Database is the minimal key-value contract a physical backend (badger,
// leveldb, memory) must satisfy.
type Database interface {
	Putter
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	NewBatch() Batch
	NewIterator(prefix []byte) Iterator
	Close()
}

// Batch accumulates writes for atomic application, used at Commit (§4.9).
type Batch interface {
	Putter
	Delete(key []byte) error
	Write() error
	ValueSize() int
	Reset()
}

// Iterator walks keys under a prefix in lexicographic order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// DBType names a physical backend implementation.
type DBType string

const (
	BadgerDB DBType = "badger"
	LevelDB  DBType = "leveldb"
	MemDB    DBType = "memory"
)

// DBEntryType is one of the column families of §6.
type DBEntryType uint8

const (
	NodeInfoDB DBEntryType = iota
	ExtraDB
	TxMetaDB
	MerkleTransactionsDB
	AccountTriePagesDB

	numDBEntryTypes
)

var dbDirs = [numDBEntryTypes]string{
	"node_info",
	"extra",
	"tx_meta",
	"merkle_transactions",
	"account_trie_pages",
}

func (t DBEntryType) dir() string { return dbDirs[t] }

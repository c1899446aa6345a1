package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// OpenFileLimit mirrors the teacher's package-level tunable for the number
// of OS file handles leveldb may hold open.
var OpenFileLimit = 64

type levelDB struct {
	fn string
	db *leveldb.DB
}

func getLDBOptions(cacheSizeMB, numHandles int) *opt.Options {
	return &opt.Options{
		OpenFilesCacheCapacity: numHandles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// NewLevelDB opens (or recovers) a leveldb-backed Database at file, the
// alternate storage backend selectable via the node config's DBType setting.
func NewLevelDB(file string, cacheSizeMB, numHandles int) (Database, error) {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if numHandles < 16 {
		numHandles = 16
	}
	db, err := leveldb.OpenFile(file, getLDBOptions(cacheSizeMB, numHandles))
	if _, corrupted := err.(*lderrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDB{fn: file, db: db}, nil
}

func (db *levelDB) Put(key, value []byte) error { return db.db.Put(key, value, nil) }
func (db *levelDB) Has(key []byte) (bool, error) { return db.db.Has(key, nil) }

func (db *levelDB) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return dat, err
}

func (db *levelDB) Delete(key []byte) error { return db.db.Delete(key, nil) }

func (db *levelDB) NewIterator(prefix []byte) Iterator {
	it := db.db.NewIterator(util.BytesPrefix(prefix), nil)
	return &ldbIterator{it: it}
}

func (db *levelDB) Close() {
	if err := db.db.Close(); err != nil {
		logger.Error("leveldb close failed", "err", err)
	}
}

type ldbIterator struct {
	it iterator
}

// iterator narrows the goleveldb iterator to what Iterator needs; declared
// as an interface so ldbIterator can wrap *leveldb/iterator.Iterator.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

func (i *ldbIterator) Next() bool   { return i.it.Next() }
func (i *ldbIterator) Key() []byte  { return append([]byte(nil), i.it.Key()...) }
func (i *ldbIterator) Value() []byte { return append([]byte(nil), i.it.Value()...) }
func (i *ldbIterator) Release()      { i.it.Release() }

type levelBatch struct {
	db    *levelDB
	batch *leveldb.Batch
	size  int
}

func (db *levelDB) NewBatch() Batch {
	return &levelBatch{db: db, batch: new(leveldb.Batch)}
}

func (b *levelBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelBatch) Write() error     { return b.db.db.Write(b.batch, nil) }
func (b *levelBatch) ValueSize() int   { return b.size }
func (b *levelBatch) Reset()           { b.batch.Reset(); b.size = 0 }

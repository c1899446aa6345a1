package database

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
)

const gcThreshold = int64(1 << 30)
const sizeGCTickerTime = 1 * time.Minute

// badgerDB is the default physical backend, grounded on the teacher's
// storage/database/badger_database.go.
type badgerDB struct {
	fn       string
	db       *badger.DB
	gcTicker *time.Ticker
}

func getBadgerDBDefaultOption(dbDir string) badger.Options {
	opts := badger.DefaultOptions
	opts.Dir = dbDir
	opts.ValueDir = dbDir
	return opts
}

// NewBadgerDB opens (creating if necessary) a badger-backed Database at dbDir.
func NewBadgerDB(dbDir string) (Database, error) {
	if fi, err := os.Stat(dbDir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("badgerDB: %s is not a directory", dbDir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("badgerDB: mkdir %s: %w", dbDir, err)
		}
	} else {
		return nil, fmt.Errorf("badgerDB: stat %s: %w", dbDir, err)
	}

	opts := getBadgerDBDefaultOption(dbDir)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerDB: open %s: %w", dbDir, err)
	}

	bg := &badgerDB{
		fn:       dbDir,
		db:       db,
		gcTicker: time.NewTicker(sizeGCTickerTime),
	}
	go bg.runValueLogGC()
	return bg, nil
}

func (bg *badgerDB) runValueLogGC() {
	_, lastSize := bg.db.Size()
	for range bg.gcTicker.C {
		_, curSize := bg.db.Size()
		if curSize-lastSize < gcThreshold {
			continue
		}
		if err := bg.db.RunValueLogGC(0.5); err != nil {
			logger.Error("badger value log gc failed", "err", err)
			continue
		}
		_, lastSize = bg.db.Size()
	}
}

func (bg *badgerDB) Put(key, value []byte) error {
	return bg.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (bg *badgerDB) Has(key []byte) (bool, error) {
	var found bool
	err := bg.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (bg *badgerDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := bg.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return out, err
}

func (bg *badgerDB) Delete(key []byte) error {
	return bg.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (bg *badgerDB) NewIterator(prefix []byte) Iterator {
	txn := bg.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

func (bg *badgerDB) Close() {
	bg.gcTicker.Stop()
	if err := bg.db.Close(); err != nil {
		logger.Error("badger close failed", "err", err)
	}
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.prefix)
		i.started = true
	} else {
		i.it.Next()
	}
	if !i.it.ValidForPrefix(i.prefix) {
		return false
	}
	return true
}

func (i *badgerIterator) Key() []byte   { return i.it.Item().KeyCopy(nil) }
func (i *badgerIterator) Value() []byte { v, _ := i.it.Item().ValueCopy(nil); return v }
func (i *badgerIterator) Release() {
	i.it.Close()
	i.txn.Discard()
}

// badgerBatch accumulates writes and flushes with a single transaction,
// matching the teacher's per-DBEntryType batch usage at Commit.
type badgerBatch struct {
	db   *badgerDB
	puts map[string][]byte
	dels map[string]struct{}
	size int
}

func (bg *badgerDB) NewBatch() Batch {
	return &badgerBatch{db: bg, puts: make(map[string][]byte), dels: make(map[string]struct{})}
}

func (b *badgerBatch) Put(key, value []byte) error {
	b.puts[string(key)] = value
	delete(b.dels, string(key))
	b.size += len(key) + len(value)
	return nil
}

func (b *badgerBatch) Delete(key []byte) error {
	b.dels[string(key)] = struct{}{}
	delete(b.puts, string(key))
	b.size += len(key)
	return nil
}

func (b *badgerBatch) ValueSize() int { return b.size }

func (b *badgerBatch) Reset() {
	b.puts = make(map[string][]byte)
	b.dels = make(map[string]struct{})
	b.size = 0
}

func (b *badgerBatch) Write() error {
	return b.db.db.Update(func(txn *badger.Txn) error {
		for k, v := range b.puts {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		for k := range b.dels {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

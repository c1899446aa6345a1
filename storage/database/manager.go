package database

import (
	"fmt"
	"path/filepath"
)

// DBManager fronts the five column families of §6 behind a uniform
// namespaced key-value contract, grounded on the teacher's DBManager
// (db_manager.go) but narrowed to this chain's persisted layout instead of
// klaytn's header/body/receipt/trie families.
type DBManager interface {
	NewBatch(entry DBEntryType) Batch
	Get(entry DBEntryType, key []byte) ([]byte, error)
	Put(entry DBEntryType, key, value []byte) error
	Has(entry DBEntryType, key []byte) (bool, error)
	Delete(entry DBEntryType, key []byte) error
	NewIterator(entry DBEntryType, prefix []byte) Iterator
	Close()
}

type dbManager struct {
	dbs [numDBEntryTypes]Database
}

// NewPartitionedDBManager opens one physical database per column family
// under baseDir, using dbType as the backend for every family — the
// teacher's "partitioned database" mode (db_manager.go's
// "Partitioned database is used for persistent storage" path).
func NewPartitionedDBManager(baseDir string, dbType DBType) (DBManager, error) {
	m := &dbManager{}
	for i := DBEntryType(0); i < numDBEntryTypes; i++ {
		dir := filepath.Join(baseDir, i.dir())
		db, err := openBackend(dbType, dir)
		if err != nil {
			return nil, fmt.Errorf("storage/database: open %s: %w", dir, err)
		}
		m.dbs[i] = db
	}
	logger.Info("partitioned database opened", "baseDir", baseDir, "type", dbType)
	return m, nil
}

// NewSingleDBManager shares one physical database across every column
// family, distinguishing them with a key prefix — the teacher's "single
// database" mode.
func NewSingleDBManager(baseDir string, dbType DBType) (DBManager, error) {
	backing, err := openBackend(dbType, baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage/database: open %s: %w", baseDir, err)
	}
	m := &dbManager{}
	for i := DBEntryType(0); i < numDBEntryTypes; i++ {
		m.dbs[i] = &prefixedDatabase{db: backing, prefix: []byte(i.dir() + "/")}
	}
	logger.Info("single database opened", "baseDir", baseDir, "type", dbType)
	return m, nil
}

// NewMemoryDBManager backs every column family with an independent
// in-memory store, for tests.
func NewMemoryDBManager() DBManager {
	m := &dbManager{}
	for i := DBEntryType(0); i < numDBEntryTypes; i++ {
		m.dbs[i] = NewMemDatabase()
	}
	return m
}

func openBackend(dbType DBType, dir string) (Database, error) {
	switch dbType {
	case LevelDB:
		return NewLevelDB(dir, 128, 16)
	case MemDB:
		return NewMemDatabase(), nil
	default:
		return NewBadgerDB(dir)
	}
}

func (m *dbManager) NewBatch(entry DBEntryType) Batch { return m.dbs[entry].NewBatch() }
func (m *dbManager) Get(entry DBEntryType, key []byte) ([]byte, error) {
	return m.dbs[entry].Get(key)
}
func (m *dbManager) Put(entry DBEntryType, key, value []byte) error {
	return m.dbs[entry].Put(key, value)
}
func (m *dbManager) Has(entry DBEntryType, key []byte) (bool, error) {
	return m.dbs[entry].Has(key)
}
func (m *dbManager) Delete(entry DBEntryType, key []byte) error {
	return m.dbs[entry].Delete(key)
}
func (m *dbManager) NewIterator(entry DBEntryType, prefix []byte) Iterator {
	return m.dbs[entry].NewIterator(prefix)
}

func (m *dbManager) Close() {
	seen := make(map[Database]bool)
	for _, db := range m.dbs {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		db.Close()
	}
}

// prefixedDatabase narrows a shared Database to one column family's
// keyspace, used by the single-database mode.
type prefixedDatabase struct {
	db     Database
	prefix []byte
}

func (p *prefixedDatabase) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	out = append(out, k...)
	return out
}

func (p *prefixedDatabase) Put(key, value []byte) error { return p.db.Put(p.key(key), value) }
func (p *prefixedDatabase) Has(key []byte) (bool, error) { return p.db.Has(p.key(key)) }
func (p *prefixedDatabase) Get(key []byte) ([]byte, error) { return p.db.Get(p.key(key)) }
func (p *prefixedDatabase) Delete(key []byte) error        { return p.db.Delete(p.key(key)) }
func (p *prefixedDatabase) NewBatch() Batch                { return &prefixedBatch{inner: p.db.NewBatch(), prefix: p.prefix} }
func (p *prefixedDatabase) NewIterator(prefix []byte) Iterator {
	return p.db.NewIterator(p.key(prefix))
}
func (p *prefixedDatabase) Close() {}

type prefixedBatch struct {
	inner  Batch
	prefix []byte
}

func (b *prefixedBatch) key(k []byte) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	out = append(out, b.prefix...)
	out = append(out, k...)
	return out
}

func (b *prefixedBatch) Put(key, value []byte) error { return b.inner.Put(b.key(key), value) }
func (b *prefixedBatch) Delete(key []byte) error     { return b.inner.Delete(b.key(key)) }
func (b *prefixedBatch) Write() error                { return b.inner.Write() }
func (b *prefixedBatch) ValueSize() int              { return b.inner.ValueSize() }
func (b *prefixedBatch) Reset()                      { b.inner.Reset() }

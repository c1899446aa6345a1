package database

import "sort"

// MemDatabase is an in-memory Database used by tests and by the MemDB
// backend type, matching the teacher's GetMemDB()/MemDatabase escape hatch.
type MemDatabase struct {
	kv map[string][]byte
}

// NewMemDatabase returns an empty in-memory store.
func NewMemDatabase() *MemDatabase {
	return &MemDatabase{kv: make(map[string][]byte)}
}

func (m *MemDatabase) Put(key, value []byte) error {
	cp := append([]byte(nil), value...)
	m.kv[string(key)] = cp
	return nil
}

func (m *MemDatabase) Has(key []byte) (bool, error) {
	_, ok := m.kv[string(key)]
	return ok, nil
}

func (m *MemDatabase) Get(key []byte) ([]byte, error) {
	v, ok := m.kv[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemDatabase) Delete(key []byte) error {
	delete(m.kv, string(key))
	return nil
}

func (m *MemDatabase) NewIterator(prefix []byte) Iterator {
	var keys []string
	for k := range m.kv {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{db: m, keys: keys, idx: -1}
}

func (m *MemDatabase) Close() {}

type memIterator struct {
	db   *MemDatabase
	keys []string
	idx  int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIterator) Value() []byte { v, _ := it.db.Get([]byte(it.keys[it.idx])); return v }
func (it *memIterator) Release()      {}

type memBatch struct {
	db   *MemDatabase
	puts map[string][]byte
	dels map[string]struct{}
	size int
}

func (m *MemDatabase) NewBatch() Batch {
	return &memBatch{db: m, puts: make(map[string][]byte), dels: make(map[string]struct{})}
}

func (b *memBatch) Put(key, value []byte) error {
	b.puts[string(key)] = append([]byte(nil), value...)
	delete(b.dels, string(key))
	b.size += len(key) + len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.dels[string(key)] = struct{}{}
	delete(b.puts, string(key))
	b.size += len(key)
	return nil
}

func (b *memBatch) Write() error {
	for k, v := range b.puts {
		b.db.kv[k] = v
	}
	for k := range b.dels {
		delete(b.db.kv, k)
	}
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }
func (b *memBatch) Reset() {
	b.puts = make(map[string][]byte)
	b.dels = make(map[string]struct{})
	b.size = 0
}

//go:build rocksdb
// +build rocksdb

package db

import (
	"fmt"
	"sync"

	"github.com/linxGnu/grocksdb"
)

// RocksDBProvider implements Provider for RocksDB.
type RocksDBProvider struct {
	once sync.Once
	db   *grocksdb.DB
	ro   *grocksdb.ReadOptions
	wo   *grocksdb.WriteOptions
}

// NewRocksDBProvider opens (or creates) a RocksDB database at directory.
func NewRocksDBProvider(directory string) (Provider, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	db, err := grocksdb.OpenDb(opts, directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open RocksDB: %w", err)
	}

	return &RocksDBProvider{
		db: db,
		ro: grocksdb.NewDefaultReadOptions(),
		wo: grocksdb.NewDefaultWriteOptions(),
	}, nil
}

// Get retrieves a value by key.
func (p *RocksDBProvider) Get(key []byte) ([]byte, error) {
	value, found, err := p.TryGet(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

// TryGet retrieves a value by key, reporting absence through the boolean.
func (p *RocksDBProvider) TryGet(key []byte) ([]byte, bool, error) {
	value, err := p.db.Get(p.ro, key)
	if err != nil {
		return nil, false, err
	}
	defer value.Free()

	if !value.Exists() {
		return nil, false, nil
	}

	// Copy the data since we're freeing the slice
	data := value.Data()
	result := make([]byte, len(data))
	copy(result, data)
	return result, true, nil
}

// Put stores a key-value pair.
func (p *RocksDBProvider) Put(key, value []byte) error {
	return p.db.Put(p.wo, key, value)
}

// Has checks if a key exists.
func (p *RocksDBProvider) Has(key []byte) (bool, error) {
	_, found, err := p.TryGet(key)
	return found, err
}

// Batch returns a new batch for atomic operations.
func (p *RocksDBProvider) Batch() Batch {
	return &RocksDBBatch{
		batch:    grocksdb.NewWriteBatch(),
		provider: p,
	}
}

// Iterate returns an ordered iterator over the given key range. Bounds are
// installed on a dedicated ReadOptions that lives as long as the iterator.
func (p *RocksDBProvider) Iterate(opts IterOptions) Iterator {
	ro := grocksdb.NewDefaultReadOptions()
	ro.SetFillCache(false)
	if opts.Start != nil {
		ro.SetIterateLowerBound(opts.Start)
	}
	if opts.End != nil {
		ro.SetIterateUpperBound(opts.End)
	}

	return &rocksDBIterator{
		iter: p.db.NewIterator(ro),
		ro:   ro,
		opts: opts,
	}
}

// Close closes the database connection.
func (p *RocksDBProvider) Close() error {
	// avoid double close when shared by multiple owners
	p.once.Do(func() {
		p.ro.Destroy()
		p.wo.Destroy()
		p.db.Close()
	})
	return nil
}

// rocksDBIterator adapts a grocksdb iterator to the Iterator contract.
type rocksDBIterator struct {
	iter    *grocksdb.Iterator
	ro      *grocksdb.ReadOptions
	opts    IterOptions
	started bool
	seen    int
	key     []byte
	value   []byte
}

func (it *rocksDBIterator) Next() bool {
	if it.opts.Limit > 0 && it.seen >= it.opts.Limit {
		return false
	}

	if !it.started {
		it.started = true
		if it.opts.Reverse {
			it.iter.SeekToLast()
		} else {
			it.iter.SeekToFirst()
		}
	} else {
		if it.opts.Reverse {
			it.iter.Prev()
		} else {
			it.iter.Next()
		}
	}
	if !it.iter.Valid() {
		return false
	}

	it.seen++
	k := it.iter.Key()
	it.key = append([]byte(nil), k.Data()...)
	k.Free()
	if it.opts.KeysOnly {
		it.value = nil
	} else {
		v := it.iter.Value()
		it.value = append([]byte(nil), v.Data()...)
		v.Free()
	}
	return true
}

func (it *rocksDBIterator) Key() []byte   { return it.key }
func (it *rocksDBIterator) Value() []byte { return it.value }
func (it *rocksDBIterator) Error() error  { return it.iter.Err() }

func (it *rocksDBIterator) Release() {
	it.iter.Close()
	it.ro.Destroy()
}

// RocksDBBatch implements Batch for RocksDB.
type RocksDBBatch struct {
	batch    *grocksdb.WriteBatch
	provider *RocksDBProvider
}

// Put adds a key-value pair to the batch.
func (b *RocksDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete adds a deletion to the batch.
func (b *RocksDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write commits all operations in the batch.
func (b *RocksDBBatch) Write() error {
	return b.provider.db.Write(b.provider.wo, b.batch)
}

// Reset clears the batch.
func (b *RocksDBBatch) Reset() {
	b.batch.Clear()
}

// Close releases batch resources.
func (b *RocksDBBatch) Close() {
	b.batch.Destroy()
}

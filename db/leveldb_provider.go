package db

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	ldbiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBProvider implements Provider for LevelDB.
type LevelDBProvider struct {
	once sync.Once
	db   *leveldb.DB
}

// NewLevelDBProvider opens (or creates) a LevelDB database at directory.
func NewLevelDBProvider(directory string, tuning LevelDBTuning) (Provider, error) {
	options := &opt.Options{
		NoSync: tuning.NoSync,
	}
	if tuning.WriteBufferMB > 0 {
		options.WriteBuffer = tuning.WriteBufferMB * opt.MiB
	}
	if tuning.BlockCacheMB > 0 {
		options.BlockCacheCapacity = tuning.BlockCacheMB * opt.MiB
	}
	if tuning.OpenFilesCacheCapacity > 0 {
		options.OpenFilesCacheCapacity = tuning.OpenFilesCacheCapacity
	}
	if tuning.BloomFilterBits > 0 {
		options.Filter = filter.NewBloomFilter(tuning.BloomFilterBits)
	}

	db, err := leveldb.OpenFile(directory, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB: %w", err)
	}

	return &LevelDBProvider{db: db}, nil
}

// Get retrieves a value by key.
func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	value, err := p.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// TryGet retrieves a value by key, reporting absence through the boolean.
func (p *LevelDBProvider) TryGet(key []byte) ([]byte, bool, error) {
	value, err := p.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Put stores a key-value pair.
func (p *LevelDBProvider) Put(key, value []byte) error {
	return p.db.Put(key, value, nil)
}

// Has checks if a key exists.
func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	return p.db.Has(key, nil)
}

// Batch returns a new batch for atomic operations.
func (p *LevelDBProvider) Batch() Batch {
	return &LevelDBBatch{
		batch: new(leveldb.Batch),
		db:    p.db,
	}
}

// Iterate returns an ordered iterator over the given key range.
func (p *LevelDBProvider) Iterate(opts IterOptions) Iterator {
	var slice *util.Range
	if opts.Start != nil || opts.End != nil {
		slice = &util.Range{Start: opts.Start, Limit: opts.End}
	}
	return &levelDBIterator{
		iter: p.db.NewIterator(slice, nil),
		opts: opts,
	}
}

// Close closes the database connection.
func (p *LevelDBProvider) Close() error {
	// avoid double close when shared by multiple owners
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

// levelDBIterator adapts a goleveldb iterator to the Iterator contract,
// adding direction, limit and keys-only handling.
type levelDBIterator struct {
	iter    ldbiterator.Iterator
	opts    IterOptions
	started bool
	seen    int
	key     []byte
	value   []byte
}

func (it *levelDBIterator) Next() bool {
	if it.opts.Limit > 0 && it.seen >= it.opts.Limit {
		return false
	}

	var ok bool
	if !it.started {
		it.started = true
		if it.opts.Reverse {
			ok = it.iter.Last()
		} else {
			ok = it.iter.First()
		}
	} else {
		if it.opts.Reverse {
			ok = it.iter.Prev()
		} else {
			ok = it.iter.Next()
		}
	}
	if !ok {
		return false
	}

	it.seen++
	// goleveldb reuses its buffers between moves, so copy out.
	it.key = append([]byte(nil), it.iter.Key()...)
	if it.opts.KeysOnly {
		it.value = nil
	} else {
		it.value = append([]byte(nil), it.iter.Value()...)
	}
	return true
}

func (it *levelDBIterator) Key() []byte   { return it.key }
func (it *levelDBIterator) Value() []byte { return it.value }
func (it *levelDBIterator) Error() error  { return it.iter.Error() }
func (it *levelDBIterator) Release()      { it.iter.Release() }

// LevelDBBatch implements Batch for LevelDB.
type LevelDBBatch struct {
	batch *leveldb.Batch
	db    *leveldb.DB
}

// Put adds a key-value pair to the batch.
func (b *LevelDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete adds a deletion to the batch.
func (b *LevelDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write commits all operations in the batch.
func (b *LevelDBBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

// Reset clears the batch.
func (b *LevelDBBatch) Reset() {
	b.batch.Reset()
}

// Close releases batch resources.
func (b *LevelDBBatch) Close() {
	// LevelDB batch doesn't need explicit closing
}

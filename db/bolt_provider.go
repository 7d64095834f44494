package db

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketEntries is the single bucket holding every stored entry; the store
// uses one flat namespace.
var bucketEntries = []byte("entries")

const boltFileName = "blockdb.bolt"

// BoltProvider implements Provider for bbolt.
type BoltProvider struct {
	once sync.Once
	db   *bolt.DB
}

// NewBoltProvider opens (or creates) a bbolt database file inside directory.
func NewBoltProvider(directory string) (Provider, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(directory, boltFileName), 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	return &BoltProvider{db: db}, nil
}

// Get retrieves a value by key.
func (p *BoltProvider) Get(key []byte) ([]byte, error) {
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
func (p *BoltProvider) TryGet(key []byte) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get(key)
		if v != nil {
			// bolt values are only valid inside the transaction
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Put stores a key-value pair.
func (p *BoltProvider) Put(key, value []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(key, value)
	})
}

// Has checks if a key exists.
func (p *BoltProvider) Has(key []byte) (bool, error) {
	_, found, err := p.TryGet(key)
	return found, err
}

// Batch returns a new batch for atomic operations.
func (p *BoltProvider) Batch() Batch {
	return &BoltBatch{db: p.db}
}

// Iterate returns an ordered iterator over the given key range. The
// iterator keeps a read transaction open until Release is called.
func (p *BoltProvider) Iterate(opts IterOptions) Iterator {
	tx, err := p.db.Begin(false)
	if err != nil {
		return &errIterator{err: fmt.Errorf("failed to begin bolt read transaction: %w", err)}
	}
	return &boltIterator{
		tx:     tx,
		cursor: tx.Bucket(bucketEntries).Cursor(),
		opts:   opts,
	}
}

// Close closes the database.
func (p *BoltProvider) Close() error {
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

// boltIterator walks a bucket cursor within one read transaction.
type boltIterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	opts    IterOptions
	started bool
	seen    int
	key     []byte
	value   []byte
}

func (it *boltIterator) Next() bool {
	if it.opts.Limit > 0 && it.seen >= it.opts.Limit {
		return false
	}

	var k, v []byte
	if !it.started {
		it.started = true
		k, v = it.first()
	} else {
		if it.opts.Reverse {
			k, v = it.cursor.Prev()
		} else {
			k, v = it.cursor.Next()
		}
	}

	if k == nil || it.outOfRange(k) {
		return false
	}

	it.seen++
	it.key = append([]byte(nil), k...)
	if it.opts.KeysOnly {
		it.value = nil
	} else {
		it.value = append([]byte(nil), v...)
	}
	return true
}

// first positions the cursor at the initial entry for the scan direction.
func (it *boltIterator) first() ([]byte, []byte) {
	if !it.opts.Reverse {
		if it.opts.Start != nil {
			return it.cursor.Seek(it.opts.Start)
		}
		return it.cursor.First()
	}

	// Reverse: start at the last key below the exclusive End bound.
	if it.opts.End == nil {
		return it.cursor.Last()
	}
	k, _ := it.cursor.Seek(it.opts.End)
	if k == nil {
		return it.cursor.Last()
	}
	return it.cursor.Prev()
}

func (it *boltIterator) outOfRange(k []byte) bool {
	if it.opts.Reverse {
		return it.opts.Start != nil && bytes.Compare(k, it.opts.Start) < 0
	}
	return it.opts.End != nil && bytes.Compare(k, it.opts.End) >= 0
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.value }
func (it *boltIterator) Error() error  { return nil }

func (it *boltIterator) Release() {
	if it.tx != nil {
		_ = it.tx.Rollback()
		it.tx = nil
	}
}

// boltOp is one buffered mutation in a BoltBatch.
type boltOp struct {
	key    []byte
	value  []byte
	delete bool
}

// BoltBatch implements Batch for bbolt by buffering operations and applying
// them in a single update transaction.
type BoltBatch struct {
	db  *bolt.DB
	ops []boltOp
}

// Put adds a key-value pair to the batch.
func (b *BoltBatch) Put(key, value []byte) {
	b.ops = append(b.ops, boltOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete adds a deletion to the batch.
func (b *BoltBatch) Delete(key []byte) {
	b.ops = append(b.ops, boltOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

// Write commits all operations in one transaction.
func (b *BoltBatch) Write() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		for _, op := range b.ops {
			if op.delete {
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put(op.key, op.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset clears the batch.
func (b *BoltBatch) Reset() {
	b.ops = b.ops[:0]
}

// Close releases batch resources.
func (b *BoltBatch) Close() {
	b.ops = nil
}

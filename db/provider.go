// Package db abstracts the sorted key-value engine underneath the block
// store. Providers keep keys in byte-wise order, commit batches atomically
// and expose bounded range iteration in both directions.
package db

import "errors"

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("db: key not found")

// ErrClosed is returned by operations on a provider after Close.
var ErrClosed = errors.New("db: provider is closed")

// Provider abstracts the low-level database operations so the block store
// can work with different backends without knowing implementation details.
type Provider interface {
	// Get retrieves a value by key. Returns ErrNotFound when absent.
	Get(key []byte) ([]byte, error)

	// TryGet retrieves a value by key. Absence is reported through the
	// boolean, never as an error.
	TryGet(key []byte) ([]byte, bool, error)

	// Put stores a key-value pair, overwriting any existing value.
	Put(key, value []byte) error

	// Has checks if a key exists.
	Has(key []byte) (bool, error)

	// Batch returns a new batch for atomic operations.
	Batch() Batch

	// Iterate returns an ordered iterator over the key range described by
	// opts. The caller must Release the iterator and check Error after the
	// loop; a partially consumed iterator that ends with an error is not a
	// complete result.
	Iterate(opts IterOptions) Iterator

	// Close closes the database.
	Close() error
}

// Batch accumulates puts and deletes for a single atomic commit. A batch is
// all-or-nothing: a concurrent reader observes either none or all of its
// mutations.
type Batch interface {
	// Put adds a key-value pair to the batch.
	Put(key, value []byte)

	// Delete adds a deletion to the batch.
	Delete(key []byte)

	// Write commits all accumulated operations atomically.
	Write() error

	// Reset clears the batch.
	Reset()

	// Close releases batch resources.
	Close()
}

// IterOptions bounds and directs a range scan.
type IterOptions struct {
	// Reverse walks the range from highest key to lowest.
	Reverse bool

	// Limit caps the number of entries yielded. Zero means unlimited.
	Limit int

	// Start is the inclusive lower key bound. Nil means unbounded.
	Start []byte

	// End is the exclusive upper key bound. Nil means unbounded.
	End []byte

	// KeysOnly omits values, for scans that never read them.
	KeysOnly bool
}

// Iterator is a finite forward-only lazy sequence of (key, value) pairs.
// Usage follows the goleveldb shape:
//
//	it := p.Iterate(db.IterOptions{})
//	defer it.Release()
//	for it.Next() {
//		_ = it.Key()
//	}
//	if err := it.Error(); err != nil { ... }
type Iterator interface {
	// Next advances to the next entry, returning false at the end of the
	// range or on error.
	Next() bool

	// Key returns the current key. Valid until the next call to Next.
	Key() []byte

	// Value returns the current value, or nil in keys-only mode.
	Value() []byte

	// Error returns the first failure encountered, if any.
	Error() error

	// Release frees the iterator's resources.
	Release()
}

// errIterator is returned when an iterator cannot be opened at all.
type errIterator struct {
	err error
}

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Error() error  { return it.err }
func (it *errIterator) Release()      {}

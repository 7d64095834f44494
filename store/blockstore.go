// Package store implements the height-ordered block store on top of a
// sorted key-value provider.
package store

import (
	"errors"
	"fmt"
	"time"

	"blockdb/block"
	"blockdb/db"
	"blockdb/heightkey"
	"blockdb/jsonx"
	"blockdb/logx"
)

var (
	// ErrNotFound is returned by GetBlock when no entry exists at the
	// requested height.
	ErrNotFound = errors.New("no block at requested height")

	// ErrInvalidBlock is returned on writes when a block lacks its
	// identifying hash. Nothing is written on this failure.
	ErrInvalidBlock = errors.New("invalid block")
)

// BlockStore maps heights to block records. It owns its provider handle
// exclusively for its lifetime and performs no locking of its own; batch
// atomicity and scan isolation are the provider's contract.
type BlockStore struct {
	provider db.Provider
}

// New creates a block store over the given provider.
func New(provider db.Provider) (*BlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &BlockStore{provider: provider}, nil
}

// AllBlocks returns every stored block, ascending by height. The whole
// result is materialized; callers that need bounded memory should iterate
// the provider directly instead.
func (s *BlockStore) AllBlocks() ([]*block.Block, error) {
	it := s.provider.Iterate(db.IterOptions{})
	defer it.Release()

	var blocks []*block.Block
	for it.Next() {
		b, err := decodeBlock(it.Key(), it.Value())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan blocks: %w", err)
	}
	return blocks, nil
}

// FindTopBlock returns the block at the maximum stored height, or nil when
// the store is empty. A single-entry reverse scan, so it does not grow with
// store size.
func (s *BlockStore) FindTopBlock() (*block.Block, error) {
	it := s.provider.Iterate(db.IterOptions{Reverse: true, Limit: 1})
	defer it.Release()

	if !it.Next() {
		if err := it.Error(); err != nil {
			return nil, fmt.Errorf("failed to scan for top block: %w", err)
		}
		return nil, nil
	}
	return decodeBlock(it.Key(), it.Value())
}

// UpdateBlock upserts b at the key derived from the height parameter. Note
// that UpdateBlocks keys by each block's own Height field instead; the two
// entry points diverge when a caller passes a height that disagrees with
// the block's own.
func (s *BlockStore) UpdateBlock(height int64, b *block.Block) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
	}

	key, err := heightkey.Encode(height)
	if err != nil {
		return err
	}

	value, err := jsonx.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal block at height %d: %w", height, err)
	}

	if err := s.provider.Put([]byte(key), value); err != nil {
		return fmt.Errorf("failed to store block at height %d: %w", height, err)
	}
	return nil
}

// UpdateBlocks upserts an unordered, possibly sparse collection of blocks,
// each keyed by its own Height field. Every block is validated and encoded
// before anything is written; on any failure the store is unchanged. All
// entries commit as one atomic batch.
func (s *BlockStore) UpdateBlocks(blocks []*block.Block) error {
	keys := make([]string, len(blocks))
	values := make([][]byte, len(blocks))
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
		}
		key, err := heightkey.Encode(b.Height)
		if err != nil {
			return err
		}
		value, err := jsonx.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal block at height %d: %w", b.Height, err)
		}
		keys[i] = key
		values[i] = value
	}

	batch := s.provider.Batch()
	defer batch.Close()
	for i := range keys {
		batch.Put([]byte(keys[i]), values[i])
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to commit block batch: %w", err)
	}
	return nil
}

// GetBlock returns the block stored at exactly that height, or ErrNotFound.
func (s *BlockStore) GetBlock(height int64) (*block.Block, error) {
	key, err := heightkey.Encode(height)
	if err != nil {
		return nil, err
	}

	value, err := s.provider.Get([]byte(key))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, height)
		}
		return nil, fmt.Errorf("failed to get block at height %d: %w", height, err)
	}
	return decodeBlock([]byte(key), value)
}

// TryGetBlock returns the block at that height, or nil without error when
// absent. Only engine failures propagate.
func (s *BlockStore) TryGetBlock(height int64) (*block.Block, error) {
	key, err := heightkey.Encode(height)
	if err != nil {
		return nil, err
	}

	value, found, err := s.provider.TryGet([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get block at height %d: %w", height, err)
	}
	if !found {
		return nil, nil
	}
	return decodeBlock([]byte(key), value)
}

// Count returns the number of stored entries by a keys-only full scan.
// O(n); too expensive for frequent use.
func (s *BlockStore) Count() (int, error) {
	it := s.provider.Iterate(db.IterOptions{KeysOnly: true})
	defer it.Release()

	count := 0
	for it.Next() {
		count++
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return count, nil
}

// TrimPastHeight deletes every entry strictly below height as one atomic
// batch and reports how many were removed. Entries at height and above are
// untouched.
func (s *BlockStore) TrimPastHeight(height int64) (int, error) {
	end, err := heightkey.Encode(height)
	if err != nil {
		return 0, err
	}
	return s.deleteRange(db.IterOptions{End: []byte(end), KeysOnly: true})
}

// ClearDB deletes every entry and reports how many were removed. Plain
// scan-then-batch-delete, so no engine bulk-clear capability is required.
func (s *BlockStore) ClearDB() (int, error) {
	return s.deleteRange(db.IterOptions{KeysOnly: true})
}

// deleteRange collects every key in the range, then commits the deletions
// together. The scan must complete before anything is deleted; a scan error
// leaves the store unchanged.
func (s *BlockStore) deleteRange(opts db.IterOptions) (int, error) {
	it := s.provider.Iterate(opts)
	defer it.Release()

	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("failed to scan keys for deletion: %w", err)
	}
	// Release the read transaction before opening the write batch: bolt
	// self-deadlocks if the commit has to grow the mmap while a read
	// transaction is still open in the same goroutine.
	it.Release()
	if len(keys) == 0 {
		return 0, nil
	}

	batch := s.provider.Batch()
	defer batch.Close()
	for _, key := range keys {
		batch.Delete(key)
	}
	if err := batch.Write(); err != nil {
		return 0, fmt.Errorf("failed to commit deletions: %w", err)
	}
	return len(keys), nil
}

// DebugDump logs every stored entry from highest to lowest height: an index
// counter, the raw key, minutes since the block's timestamp and truncated
// hash prefixes. Diagnostic only.
func (s *BlockStore) DebugDump() error {
	it := s.provider.Iterate(db.IterOptions{Reverse: true})
	defer it.Release()

	now := time.Now()
	i := 0
	for it.Next() {
		b, err := decodeBlock(it.Key(), it.Value())
		if err != nil {
			return err
		}
		ageMinutes := int(b.Age(now) / time.Minute)
		logx.Info("BLOCKSTORE", fmt.Sprintf("%4d %s age=%dm indep=%s prev=%s",
			i, it.Key(), ageMinutes, shortHash(b.IndepHash), shortHash(b.PreviousBlock)))
		i++
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("failed to dump blocks: %w", err)
	}
	return nil
}

// Close closes the underlying provider.
func (s *BlockStore) Close() error {
	return s.provider.Close()
}

func decodeBlock(key, value []byte) (*block.Block, error) {
	var b block.Block
	if err := jsonx.Unmarshal(value, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block at key %q: %w", key, err)
	}
	return &b, nil
}

func shortHash(hash string) string {
	const n = 10
	if len(hash) <= n {
		return hash
	}
	return hash[:n] + "..."
}

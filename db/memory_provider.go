package db

import (
	"sort"
	"sync"
)

// MemoryProvider implements Provider with an in-process map. Nothing
// survives process restart; it backs the non-persistent mode used for
// ephemeral stores and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() Provider {
	return &MemoryProvider{entries: make(map[string][]byte)}
}

// Get retrieves a value by key.
func (p *MemoryProvider) Get(key []byte) ([]byte, error) {
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
func (p *MemoryProvider) TryGet(key []byte) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, false, ErrClosed
	}
	value, found := p.entries[string(key)]
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Put stores a key-value pair.
func (p *MemoryProvider) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.entries[string(key)] = append([]byte(nil), value...)
	return nil
}

// Has checks if a key exists.
func (p *MemoryProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrClosed
	}
	_, found := p.entries[string(key)]
	return found, nil
}

// Batch returns a new batch for atomic operations.
func (p *MemoryProvider) Batch() Batch {
	return &memoryBatch{provider: p}
}

// Iterate returns an iterator over a snapshot of the current entries, so a
// scan never observes a concurrent batch partially applied.
func (p *MemoryProvider) Iterate(opts IterOptions) Iterator {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return &errIterator{err: ErrClosed}
	}
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		if opts.Start != nil && k < string(opts.Start) {
			continue
		}
		if opts.End != nil && k >= string(opts.End) {
			continue
		}
		keys = append(keys, k)
	}
	values := make(map[string][]byte, len(keys))
	if !opts.KeysOnly {
		for _, k := range keys {
			values[k] = append([]byte(nil), p.entries[k]...)
		}
	}
	p.mu.RUnlock()

	sort.Strings(keys)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}

	return &memoryIterator{keys: keys, values: values, pos: -1}
}

// Close drops the entries and marks the provider closed. Later operations
// return ErrClosed, matching the persistent engines.
func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.entries = nil
	return nil
}

type memoryIterator struct {
	keys   []string
	values map[string][]byte
	pos    int
}

func (it *memoryIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memoryIterator) Value() []byte { return it.values[it.keys[it.pos]] }
func (it *memoryIterator) Error() error  { return nil }
func (it *memoryIterator) Release()      {}

type memoryOp struct {
	key    string
	value  []byte
	delete bool
}

type memoryBatch struct {
	provider *MemoryProvider
	ops      []memoryOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key), value: append([]byte(nil), value...)})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key), delete: true})
}

// Write applies every buffered operation under one lock acquisition.
func (b *memoryBatch) Write() error {
	b.provider.mu.Lock()
	defer b.provider.mu.Unlock()
	if b.provider.closed {
		return ErrClosed
	}
	for _, op := range b.ops {
		if op.delete {
			delete(b.provider.entries, op.key)
			continue
		}
		b.provider.entries[op.key] = op.value
	}
	return nil
}

func (b *memoryBatch) Reset() {
	b.ops = b.ops[:0]
}

func (b *memoryBatch) Close() {
	b.ops = nil
}

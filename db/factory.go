package db

import "fmt"

// Backend names accepted by Open.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendRocksDB = "rocksdb"
	BackendMemory  = "memory"
)

// LevelDBTuning carries optional LevelDB knobs, usually loaded from the
// storage tuning file. Zero values keep the engine defaults.
type LevelDBTuning struct {
	WriteBufferMB          int
	BlockCacheMB           int
	BloomFilterBits        int
	OpenFilesCacheCapacity int
	NoSync                 bool
}

// Options selects and locates the engine backing a store.
type Options struct {
	// Backend is one of the Backend* constants. Empty defaults to LevelDB.
	Backend string

	// Dir is where a persistent backend keeps its files. Created if absent.
	Dir string

	// Persistent selects durable storage. When false the memory backend is
	// used regardless of Backend; non-persistent mode is for ephemeral and
	// test use only.
	Persistent bool

	// LevelDB holds backend-specific tuning for the LevelDB engine.
	LevelDB LevelDBTuning
}

// Open constructs the provider described by opts, creating the underlying
// store if it does not exist yet.
func Open(opts Options) (Provider, error) {
	if !opts.Persistent {
		return NewMemoryProvider(), nil
	}

	backend := opts.Backend
	if backend == "" {
		backend = BackendLevelDB
	}

	switch backend {
	case BackendLevelDB:
		return NewLevelDBProvider(opts.Dir, opts.LevelDB)
	case BackendBolt:
		return NewBoltProvider(opts.Dir)
	case BackendRocksDB:
		return NewRocksDBProvider(opts.Dir)
	case BackendMemory:
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unknown db backend %q", backend)
	}
}

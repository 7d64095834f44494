// Package config loads the node configuration (YAML) and the optional
// storage tuning file (INI).
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config is the top-level node configuration, loaded from a YAML file.
type Config struct {
	Store StoreConfig `yaml:"store"`
	RPC   RPCConfig   `yaml:"rpc"`
}

// StoreConfig locates and selects the storage engine.
type StoreConfig struct {
	// Backend is one of leveldb, bolt, rocksdb, memory.
	Backend string `yaml:"backend"`

	// Dir is the data directory for persistent backends.
	Dir string `yaml:"dir"`

	// Persistent selects durable storage. Non-persistent stores live in
	// memory and are for ephemeral or test use only.
	Persistent bool `yaml:"persistent"`

	// TuningFile optionally points at an INI file with engine knobs.
	TuningFile string `yaml:"tuning_file"`
}

// RPCConfig configures the JSON-RPC and metrics listeners.
type RPCConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// RateLimitMaxRequests requests per RateLimitWindowSeconds per client.
	RateLimitMaxRequests  int `yaml:"rate_limit_max_requests"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    "leveldb",
			Dir:        "./blockdb-data",
			Persistent: true,
		},
		RPC: RPCConfig{
			ListenAddr:             ":8732",
			MetricsAddr:            ":9090",
			RateLimitMaxRequests:   50,
			RateLimitWindowSeconds: 1,
		},
	}
}

// LoadConfig reads and parses a YAML config file. Missing fields keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// LevelDBTuning mirrors the [leveldb] section of the tuning file.
type LevelDBTuning struct {
	WriteBufferMB          int  `ini:"write_buffer_mb"`
	BlockCacheMB           int  `ini:"block_cache_mb"`
	BloomFilterBits        int  `ini:"bloom_filter_bits"`
	OpenFilesCacheCapacity int  `ini:"open_files_cache_capacity"`
	NoSync                 bool `ini:"no_sync"`
}

// LoadLevelDBTuning reads LevelDB knobs from an .ini file.
func LoadLevelDBTuning(path string) (*LevelDBTuning, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning file %s: %w", path, err)
	}

	tuning := &LevelDBTuning{}
	if err := cfg.Section("leveldb").MapTo(tuning); err != nil {
		return nil, fmt.Errorf("failed to map leveldb tuning: %w", err)
	}
	return tuning, nil
}

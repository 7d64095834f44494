package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
store:
  backend: bolt
  dir: /var/lib/blockdb
  persistent: true
rpc:
  listen_addr: ":9000"
  rate_limit_max_requests: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/blockdb", cfg.Store.Dir)
	assert.True(t, cfg.Store.Persistent)
	assert.Equal(t, ":9000", cfg.RPC.ListenAddr)
	assert.Equal(t, 20, cfg.RPC.RateLimitMaxRequests)

	// unset fields keep defaults
	assert.Equal(t, ":9090", cfg.RPC.MetricsAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadLevelDBTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.ini")
	content := `[leveldb]
write_buffer_mb = 16
block_cache_mb = 32
bloom_filter_bits = 10
open_files_cache_capacity = 500
no_sync = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tuning, err := LoadLevelDBTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 16, tuning.WriteBufferMB)
	assert.Equal(t, 32, tuning.BlockCacheMB)
	assert.Equal(t, 10, tuning.BloomFilterBits)
	assert.Equal(t, 500, tuning.OpenFilesCacheCapacity)
	assert.True(t, tuning.NoSync)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blockdb/config"
	"blockdb/db"
	"blockdb/logx"
	"blockdb/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blockdb",
	Short: "Height-ordered chain block store CLI",
	Long:  "Command line interface for inspecting and managing a blockdb block store.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(cfgFile)
}

// openStore builds the store described by the active config. The caller
// owns the returned store and must close it.
func openStore(cfg *config.Config) (*store.BlockStore, error) {
	opts := db.Options{
		Backend:    cfg.Store.Backend,
		Dir:        cfg.Store.Dir,
		Persistent: cfg.Store.Persistent,
	}

	if cfg.Store.TuningFile != "" {
		tuning, err := config.LoadLevelDBTuning(cfg.Store.TuningFile)
		if err != nil {
			return nil, err
		}
		opts.LevelDB = db.LevelDBTuning{
			WriteBufferMB:          tuning.WriteBufferMB,
			BlockCacheMB:           tuning.BlockCacheMB,
			BloomFilterBits:        tuning.BloomFilterBits,
			OpenFilesCacheCapacity: tuning.OpenFilesCacheCapacity,
			NoSync:                 tuning.NoSync,
		}
	}

	provider, err := db.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", opts.Backend, err)
	}
	s, err := store.New(provider)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return s, nil
}

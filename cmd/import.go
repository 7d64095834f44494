package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blockdb/block"
	"blockdb/jsonx"
	"blockdb/logx"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import blocks from a JSON file",
	Long: `Reads a JSON array of blocks and upserts them as one atomic batch,
each keyed by its own height field.
Examples:
  blockdb import ./blocks.json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer file.Close()

		var blocks []*block.Block
		if err := jsonx.NewDecoder(file).Decode(&blocks); err != nil {
			return fmt.Errorf("failed to decode %s: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.UpdateBlocks(blocks); err != nil {
			return err
		}
		logx.Info("CLI", "Imported ", len(blocks), " blocks from ", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blockdb/logx"
)

var trimCmd = &cobra.Command{
	Use:   "trim <height>",
	Short: "Delete every block below a height",
	Long: `Deletes, as one atomic batch, every entry strictly below the given
height. The entry at the height itself is kept.
Examples:
  # Drop everything below height 100000
  blockdb trim 100000
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		height, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid height %q: %w", args[0], err)
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

		deleted, err := s.TrimPastHeight(height)
		if err != nil {
			return err
		}
		logx.Info("CLI", "Trimmed ", deleted, " blocks below height ", height)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trimCmd)
}

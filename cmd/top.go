package cmd

import (
	"github.com/spf13/cobra"

	"blockdb/logx"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the block at the maximum stored height",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		b, err := s.FindTopBlock()
		if err != nil {
			return err
		}
		if b == nil {
			logx.Info("CLI", "Store is empty")
			return nil
		}
		return printJSON(b)
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
}

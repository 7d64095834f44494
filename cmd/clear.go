package cmd

import (
	"github.com/spf13/cobra"

	"blockdb/logx"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored block",
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

		deleted, err := s.ClearDB()
		if err != nil {
			return err
		}
		logx.Info("CLI", "Cleared ", deleted, " blocks")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored blocks",
	Long:  "Counts every stored entry with a full key scan. Expensive on large stores.",
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

		count, err := s.Count()
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}

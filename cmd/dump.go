package cmd

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Log a diagnostic readout of every stored block",
	Long:  "Walks the store from highest to lowest height and logs one line per block.",
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

		return s.DebugDump()
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blockdb/jsonx"
)

var getTolerant bool

var getCmd = &cobra.Command{
	Use:   "get <height>",
	Short: "Print the block stored at a height",
	Long: `Prints the block stored at the given height as JSON.
Examples:
  # Strict lookup, fails when the height is empty
  blockdb get 145701

  # Tolerant lookup, prints nothing when the height is empty
  blockdb get --tolerant 145701
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

		if getTolerant {
			b, err := s.TryGetBlock(height)
			if err != nil {
				return err
			}
			if b == nil {
				return nil
			}
			return printJSON(b)
		}

		b, err := s.GetBlock(height)
		if err != nil {
			return err
		}
		return printJSON(b)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getTolerant, "tolerant", false, "treat a missing block as empty output instead of an error")
}

func printJSON(v interface{}) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

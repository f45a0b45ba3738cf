package cmd

import (
	"fmt"

	"github.com/PrincetonUniversity/prga-sub001/internal/config"
	"github.com/spf13/cobra"
)

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "List the elaboration passes in execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFlow(config.Default())
		if err != nil {
			return err
		}
		order, err := f.Order()
		if err != nil {
			return err
		}
		for i, k := range order {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, k)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passesCmd)
}

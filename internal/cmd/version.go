package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/markov"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "markov %s\n", markov.Version)
			return err
		},
	}
}

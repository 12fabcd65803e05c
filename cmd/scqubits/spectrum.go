package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSpectrumCmd(state *cliState) *cobra.Command {
	var (
		count        int
		basis        string
		truncatedDim int
		overrides    []string
	)
	cmd := &cobra.Command{
		Use:   "spectrum <circuit.yaml>",
		Short: "Compute the lowest eigenvalues of a circuit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := state.buildCircuit(args[0], basis, truncatedDim, overrides)
			if err != nil {
				return err
			}
			evals, err := c.Eigenvalues(count)
			if err != nil {
				return err
			}
			for i, e := range evals {
				fmt.Fprintf(cmd.OutOrStdout(), "E%d = %.10g\n", i, e)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 6, "number of eigenvalues")
	cmd.Flags().StringVar(&basis, "basis", "discretized", "basis for extended variables (discretized, harmonic)")
	cmd.Flags().IntVar(&truncatedDim, "truncated-dim", 10, "truncated dimension when composed into larger systems")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "parameter override name=value (repeatable)")
	return cmd
}

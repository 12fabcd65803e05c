package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDescribeCmd(state *cliState) *cobra.Command {
	var (
		basis        string
		truncatedDim int
		overrides    []string
	)
	cmd := &cobra.Command{
		Use:   "describe <circuit.yaml>",
		Short: "Show the quantized model for a circuit: variables, parameters, operators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, lowered, err := state.buildCircuit(args[0], basis, truncatedDim, overrides)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hamiltonian: %s\n", lowered.Hamiltonian.String())
			cats := c.Categories()
			fmt.Fprintf(out, "periodic variables: %v\n", cats.Periodic)
			fmt.Fprintf(out, "extended variables: %v\n", cats.Extended)
			fmt.Fprintf(out, "dimension: %d\n", c.Dimension())
			fmt.Fprintf(out, "purely harmonic: %v\n", c.IsPurelyHarmonic())
			if freqs := c.NormalModeFreqs(); len(freqs) > 0 {
				fmt.Fprintf(out, "normal mode frequencies: %v\n", freqs)
			}
			for _, name := range c.ParameterNames() {
				v, _ := c.Get(name)
				fmt.Fprintf(out, "parameter %s = %g\n", name, v)
			}
			for _, name := range c.ExternalFluxNames() {
				v, _ := c.Get(name)
				fmt.Fprintf(out, "external flux %s = %g\n", name, v)
			}
			for _, name := range c.OffsetChargeNames() {
				v, _ := c.Get(name)
				fmt.Fprintf(out, "offset charge %s = %g\n", name, v)
			}
			for _, name := range c.CutoffNames() {
				v, _ := c.Get(name)
				fmt.Fprintf(out, "cutoff %s = %g\n", name, v)
			}
			fmt.Fprintf(out, "operators: %s\n", strings.Join(c.OperatorNames(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&basis, "basis", "discretized", "basis for extended variables (discretized, harmonic)")
	cmd.Flags().IntVar(&truncatedDim, "truncated-dim", 10, "truncated dimension when composed into larger systems")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "parameter override name=value (repeatable)")
	return cmd
}

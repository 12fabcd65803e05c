package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Roshan-Thomas/scqubits/internal/circuit"
	"github.com/Roshan-Thomas/scqubits/internal/config"
	"github.com/Roshan-Thomas/scqubits/internal/graphio"
	"github.com/Roshan-Thomas/scqubits/pkg/logger"
)

type cliState struct {
	logLevel string
	pretty   bool
	log      zerolog.Logger
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	state := &cliState{}
	root := &cobra.Command{
		Use:           "scqubits",
		Short:         "Quantize superconducting circuits described as branch lists",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			state.log = logger.New(logger.Config{Level: state.logLevel, Pretty: state.pretty})
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			state.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&state.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&state.pretty, "pretty", true, "pretty console log output")

	root.AddCommand(newSpectrumCmd(state))
	root.AddCommand(newDescribeCmd(state))
	return root
}

// buildCircuit lowers a YAML description and quantizes it, applying
// name=value overrides on top of the file's parameter values.
func (s *cliState) buildCircuit(path, basis string, truncatedDim int, overrides []string) (*circuit.Circuit, *graphio.Lowered, error) {
	desc, err := graphio.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	lowered, err := graphio.Lower(desc)
	if err != nil {
		return nil, nil, err
	}
	c, err := circuit.New(lowered.Hamiltonian, lowered.Params, circuit.Options{
		ExtBasis:     circuit.ExtBasis(basis),
		TruncatedDim: truncatedDim,
		Config:       s.cfg,
		Logger:       s.log,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(lowered.ClosureBranches) > 0 {
		if err := c.Configure(circuit.ConfigureOptions{ClosureBranches: lowered.ClosureBranches}); err != nil {
			return nil, nil, err
		}
	}
	for _, ov := range overrides {
		name, value, err := splitOverride(ov)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Set(name, value); err != nil {
			return nil, nil, err
		}
	}
	return c, &lowered, nil
}

func splitOverride(s string) (string, float64, error) {
	name, raw, found := strings.Cut(s, "=")
	if !found || name == "" {
		return "", 0, fmt.Errorf("override %q is not of the form name=value", s)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("override %q: %w", s, err)
	}
	return name, value, nil
}

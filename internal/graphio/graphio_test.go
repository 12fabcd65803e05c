package graphio

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fluxoniumYAML = `
branches:
  - type: C
    nodes: [0, 1]
    EC: 1.0
  - type: L
    nodes: [0, 1]
    EL: 10.0
  - type: JJ
    nodes: [0, 1]
    EJ: 20.0
    ECJ: 3.0
`

const transmonYAML = `
branches:
  - type: C
    nodes: [0, 1]
    EC: 0.5
  - type: JJ
    nodes: [0, 1]
    EJ: 25.0
offset_charge: 0.3
`

func TestParseAndLowerFluxonium(t *testing.T) {
	desc, err := Parse(strings.NewReader(fluxoniumYAML))
	require.NoError(t, err)
	require.Len(t, desc.Branches, 3)

	lowered, err := Lower(desc)
	require.NoError(t, err)
	assert.False(t, lowered.Periodic)

	// 1/EC = 1/1 + 1/3 -> EC = 0.75
	assert.InDelta(t, 0.75, lowered.Params["EC"], 1e-12)
	assert.Equal(t, 10.0, lowered.Params["EL"])
	assert.Equal(t, 20.0, lowered.Params["EJ1"])
	assert.Equal(t, 0.0, lowered.Params["Φ1"])

	// the junction closes the loop against the inductor
	require.Len(t, lowered.ClosureBranches, 1)
	assert.Equal(t, "Φ1", lowered.ClosureBranches[0].FluxSymbol)
	assert.Equal(t, "JJ", lowered.ClosureBranches[0].BranchType)

	// kinetic Q1², potential θ1² and the cos term
	require.Len(t, lowered.Hamiltonian.Terms, 3)
	cosTerm := lowered.Hamiltonian.Terms[2]
	require.Len(t, cosTerm.Trigs, 1)
	assert.InDelta(t, 2*math.Pi, cosTerm.Trigs[0].Arg.Coeffs["Φ1"], 1e-12)
	assert.Equal(t, 1.0, cosTerm.Trigs[0].Arg.Coeffs["θ1"])
}

func TestParseAndLowerTransmon(t *testing.T) {
	desc, err := Parse(strings.NewReader(transmonYAML))
	require.NoError(t, err)

	lowered, err := Lower(desc)
	require.NoError(t, err)
	assert.True(t, lowered.Periodic)
	assert.Equal(t, 0.5, lowered.Params["EC"])
	assert.Equal(t, 25.0, lowered.Params["EJ1"])
	assert.Equal(t, 0.3, lowered.Params["ng1"])
	assert.Empty(t, lowered.ClosureBranches, "a single junction closes no loop")

	// charge terms use n1, never Q1
	for _, term := range lowered.Hamiltonian.Terms {
		_, hasQ := term.Pows["Q1"]
		assert.False(t, hasQ, "compact circuit must not use an extended charge")
	}
}

func TestLowerSquidAssignsLoopFluxes(t *testing.T) {
	desc := Description{Branches: []Branch{
		{Type: "C", Nodes: []int{0, 1}, EC: 1},
		{Type: "JJ", Nodes: []int{0, 1}, EJ: 10},
		{Type: "JJ", Nodes: []int{0, 1}, EJ: 12},
	}}
	lowered, err := Lower(desc)
	require.NoError(t, err)
	assert.True(t, lowered.Periodic)
	// two junctions, one loop: the second junction carries Φ1
	require.Len(t, lowered.ClosureBranches, 1)
	assert.Equal(t, "Φ1", lowered.ClosureBranches[0].FluxSymbol)
}

func TestLowerValidation(t *testing.T) {
	tests := []struct {
		name     string
		desc     Description
		errorHas string
	}{
		{
			name:     "empty",
			desc:     Description{},
			errorHas: "no branches",
		},
		{
			name: "no capacitance",
			desc: Description{Branches: []Branch{
				{Type: "JJ", Nodes: []int{0, 1}, EJ: 10},
			}},
			errorHas: "no charging energy",
		},
		{
			name: "no inductive branch",
			desc: Description{Branches: []Branch{
				{Type: "C", Nodes: []int{0, 1}, EC: 1},
			}},
			errorHas: "no inductive branch",
		},
		{
			name: "third node",
			desc: Description{Branches: []Branch{
				{Type: "C", Nodes: []int{0, 2}, EC: 1},
			}},
			errorHas: "grounded two-node",
		},
		{
			name: "self loop",
			desc: Description{Branches: []Branch{
				{Type: "C", Nodes: []int{1, 1}, EC: 1},
			}},
			errorHas: "two distinct nodes",
		},
		{
			name: "bad branch type",
			desc: Description{Branches: []Branch{
				{Type: "R", Nodes: []int{0, 1}},
			}},
			errorHas: "unknown branch type",
		},
		{
			name: "non-positive EJ",
			desc: Description{Branches: []Branch{
				{Type: "JJ", Nodes: []int{0, 1}, EJ: 0},
			}},
			errorHas: "EJ > 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lower(tt.desc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorHas)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("branches:\n  - kind: C\n"))
	assert.Error(t, err)
}

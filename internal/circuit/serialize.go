package circuit

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// snapshot is the wire form of a circuit: the constructor arguments plus
// every attribute a caller can have modified since construction. Numeric
// caches are never serialized; Restore rebuilds them lazily.
type snapshot struct {
	Hamiltonian          symbolic.Expr      `msgpack:"hamiltonian"`
	Params               map[string]float64 `msgpack:"params"`
	RegistryValues       map[string]float64 `msgpack:"registry_values"`
	ExtBasis             string             `msgpack:"ext_basis"`
	TruncatedDim         int                `msgpack:"truncated_dim"`
	FluxDynamic          bool               `msgpack:"flux_dynamic"`
	PhiRanges            map[int][2]float64 `msgpack:"phi_ranges,omitempty"`
	Hierarchy            Hierarchy          `msgpack:"hierarchy,omitempty"`
	TruncSpec            TruncationSpec     `msgpack:"trunc_spec,omitempty"`
	TransformationMatrix [][]float64        `msgpack:"transformation_matrix,omitempty"`
	ClosureBranches      []ClosureBranch    `msgpack:"closure_branches,omitempty"`
}

// Serialize encodes the circuit so that Restore reproduces an equivalent
// object: same symbolic Hamiltonian, parameter values, cutoffs, hierarchy and
// basis choices.
func (c *Circuit) Serialize() ([]byte, error) {
	snap := snapshot{
		Hamiltonian:          c.hamiltonian,
		Params:               copyFloatMap(c.initialParams),
		RegistryValues:       c.reg.Values(),
		ExtBasis:             string(c.extBasis),
		TruncatedDim:         c.truncatedDim,
		FluxDynamic:          c.fluxDynamic,
		PhiRanges:            c.phiRanges,
		Hierarchy:            c.hierarchy,
		TruncSpec:            c.truncSpec,
		TransformationMatrix: c.transformationMatrix,
		ClosureBranches:      c.closureBranches,
	}
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("serializing circuit: %w", err)
	}
	return data, nil
}

// Restore rebuilds a circuit from Serialize output. Registry values are
// bulk-restored before the structural configuration is replayed through
// Configure, so rebuilt subsystems inherit the serialized values.
func Restore(data []byte, opts Options) (*Circuit, error) {
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("deserializing circuit: %w", err)
	}

	opts.ExtBasis = ExtBasis(snap.ExtBasis)
	opts.TruncatedDim = snap.TruncatedDim
	opts.FluxDynamic = snap.FluxDynamic

	c, err := New(snap.Hamiltonian, snap.Params, opts)
	if err != nil {
		return nil, err
	}
	for idx, rng := range snap.PhiRanges {
		c.phiRanges[idx] = rng
	}
	for name, value := range snap.RegistryValues {
		if !c.reg.Has(name) {
			continue
		}
		if err := c.reg.SetQuiet(name, value); err != nil {
			return nil, err
		}
	}
	c.invalidate()
	if len(snap.Hierarchy) > 0 || snap.TransformationMatrix != nil || snap.ClosureBranches != nil {
		if err := c.Configure(ConfigureOptions{
			TransformationMatrix: snap.TransformationMatrix,
			SystemHierarchy:      snap.Hierarchy,
			SubsystemTruncDims:   snap.TruncSpec,
			ClosureBranches:      snap.ClosureBranches,
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

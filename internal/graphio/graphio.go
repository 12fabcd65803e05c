// Package graphio reads grounded two-node circuit descriptions from YAML and
// lowers them to a symbolic Hamiltonian, parameter values and closure
// branches for quantization. Node 0 is ground; the single active node carries
// variable index 1.
package graphio

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Roshan-Thomas/scqubits/internal/circuit"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// Branch is one circuit element between two nodes. Energies follow the usual
// conventions: EC the charging energy, EL the inductive energy, EJ the
// Josephson energy, ECJ the junction's own charging energy.
type Branch struct {
	Type  string  `yaml:"type"`
	Nodes []int   `yaml:"nodes"`
	EC    float64 `yaml:"EC,omitempty"`
	EL    float64 `yaml:"EL,omitempty"`
	EJ    float64 `yaml:"EJ,omitempty"`
	ECJ   float64 `yaml:"ECJ,omitempty"`
}

// Description is the YAML document shape.
type Description struct {
	Branches []Branch `yaml:"branches"`
	// OffsetCharge sets ng1 on purely capacitive-junction circuits.
	OffsetCharge float64 `yaml:"offset_charge,omitempty"`
	// ExternalFlux presets loop flux values by symbol name (Φ1, Φ2, ...).
	ExternalFlux map[string]float64 `yaml:"external_flux,omitempty"`
}

// Lowered is the quantization-ready form of a description.
type Lowered struct {
	Hamiltonian     symbolic.Expr
	Params          map[string]float64
	ClosureBranches []circuit.ClosureBranch
	// Periodic reports whether the single variable is compact (no shunt
	// inductor) or extended.
	Periodic bool
}

// Parse decodes a YAML circuit description.
func Parse(r io.Reader) (Description, error) {
	var d Description
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("decoding circuit yaml: %w", err)
	}
	return d, nil
}

// ParseFile decodes a YAML circuit description from disk.
func ParseFile(path string) (Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return Description{}, fmt.Errorf("opening circuit yaml: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Lower turns a two-node description into a Hamiltonian over variable 1.
//
// With a shunt inductor the variable is extended:
//
//	H = 4·EC·Q1² + ½·EL·θ1² − Σ_j EJ_j·cos(θ1 + 2π·Φ_j)
//
// and every junction closes its own loop against the inductor. Without one
// the variable is compact:
//
//	H = 4·EC·(n1 − ng1)² − EJ_1·cos(θ1) − Σ_{j>1} EJ_j·cos(θ1 + 2π·Φ_{j−1})
//
// with the first junction on the spanning tree. Parallel capacitances
// combine as 1/EC = Σ 1/EC_i; parallel inductors as EL = Σ EL_i.
func Lower(d Description) (Lowered, error) {
	if len(d.Branches) == 0 {
		return Lowered{}, fmt.Errorf("circuit description has no branches")
	}

	var (
		invEC     float64
		totalEL   float64
		junctions []Branch
	)
	for i, b := range d.Branches {
		if err := checkNodes(b, i); err != nil {
			return Lowered{}, err
		}
		switch b.Type {
		case "C":
			if b.EC <= 0 {
				return Lowered{}, fmt.Errorf("branch %d: capacitor needs EC > 0", i)
			}
			invEC += 1 / b.EC
		case "L":
			if b.EL <= 0 {
				return Lowered{}, fmt.Errorf("branch %d: inductor needs EL > 0", i)
			}
			totalEL += b.EL
		case "JJ":
			if b.EJ <= 0 {
				return Lowered{}, fmt.Errorf("branch %d: junction needs EJ > 0", i)
			}
			if b.ECJ > 0 {
				invEC += 1 / b.ECJ
			}
			junctions = append(junctions, b)
		default:
			return Lowered{}, fmt.Errorf("branch %d: unknown branch type %q", i, b.Type)
		}
	}
	if invEC == 0 {
		return Lowered{}, fmt.Errorf("circuit has no charging energy: add a capacitor or a junction capacitance")
	}

	params := map[string]float64{"EC": 1 / invEC}
	for name, v := range d.ExternalFlux {
		params[name] = v
	}

	out := Lowered{Params: params}
	if totalEL > 0 {
		out.lowerExtended(totalEL, junctions)
	} else {
		if len(junctions) == 0 {
			return Lowered{}, fmt.Errorf("circuit has no inductive branch: add an inductor or a junction")
		}
		out.lowerPeriodic(junctions, d.OffsetCharge)
	}
	return out, nil
}

func checkNodes(b Branch, i int) error {
	if len(b.Nodes) != 2 || b.Nodes[0] == b.Nodes[1] {
		return fmt.Errorf("branch %d: needs two distinct nodes, got %v", i, b.Nodes)
	}
	for _, n := range b.Nodes {
		if n != 0 && n != 1 {
			return fmt.Errorf("branch %d: only grounded two-node circuits are supported, got node %d", i, n)
		}
	}
	return nil
}

func (l *Lowered) lowerExtended(totalEL float64, junctions []Branch) {
	l.Params["EL"] = totalEL
	l.Hamiltonian = symbolic.Expr{}.Add(
		symbolic.NewTerm(4, map[string]int{"EC": 1, "Q1": 2}),
		symbolic.NewTerm(0.5, map[string]int{"EL": 1, "θ1": 2}),
	)
	for j, b := range junctions {
		ejName := fmt.Sprintf("EJ%d", j+1)
		fluxName := fmt.Sprintf("Φ%d", j+1)
		l.Params[ejName] = b.EJ
		if _, ok := l.Params[fluxName]; !ok {
			l.Params[fluxName] = 0
		}
		l.Hamiltonian = l.Hamiltonian.Add(symbolic.NewTrigTerm(
			-1, map[string]int{ejName: 1},
			symbolic.Cos, symbolic.NewLinear(map[string]float64{"θ1": 1, fluxName: 2 * math.Pi}, 0),
		))
		l.ClosureBranches = append(l.ClosureBranches, circuit.ClosureBranch{
			NodeA:      b.Nodes[0],
			NodeB:      b.Nodes[1],
			BranchType: "JJ",
			FluxSymbol: fluxName,
		})
	}
}

func (l *Lowered) lowerPeriodic(junctions []Branch, offsetCharge float64) {
	l.Periodic = true
	l.Params["ng1"] = offsetCharge
	l.Hamiltonian = symbolic.Expr{}.Add(
		symbolic.NewTerm(4, map[string]int{"EC": 1, "n1": 2}),
		symbolic.NewTerm(-8, map[string]int{"EC": 1, "ng1": 1, "n1": 1}),
		symbolic.NewTerm(4, map[string]int{"EC": 1, "ng1": 2}),
	)
	for j, b := range junctions {
		ejName := fmt.Sprintf("EJ%d", j+1)
		l.Params[ejName] = b.EJ
		arg := map[string]float64{"θ1": 1}
		if j > 0 {
			// spanning tree holds the first junction; each further
			// junction closes a loop
			fluxName := fmt.Sprintf("Φ%d", j)
			if _, ok := l.Params[fluxName]; !ok {
				l.Params[fluxName] = 0
			}
			arg[fluxName] = 2 * math.Pi
			l.ClosureBranches = append(l.ClosureBranches, circuit.ClosureBranch{
				NodeA:      b.Nodes[0],
				NodeB:      b.Nodes[1],
				BranchType: "JJ",
				FluxSymbol: fluxName,
			})
		}
		l.Hamiltonian = l.Hamiltonian.Add(symbolic.NewTrigTerm(
			-1, map[string]int{ejName: 1},
			symbolic.Cos, symbolic.NewLinear(arg, 0),
		))
	}
}

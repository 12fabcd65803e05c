package circuit

import (
	"sort"

	"github.com/Roshan-Thomas/scqubits/internal/dispatch"
	"github.com/Roshan-Thomas/scqubits/internal/registry"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// configure (re)builds this node: classification, slot registration, the
// purely-harmonic check, and — under hierarchical diagonalization — the child
// subsystems. Existing children are destroyed and fully rebuilt.
func (s *Subsystem) configure(paramValues map[string]float64) error {
	s.state = Rebuilding
	s.teardownChildren()

	_, _, categories := symbolic.Classify(s.hamiltonian)
	if s.parent != nil {
		// a child's categories are always a filtered subset of its parent's
		indexSet := toIndexSet(s.hamiltonian.VariableIndices())
		categories = s.parent.categories.Filter(indexSet)
	}
	s.categories = categories
	s.varIndices = quantizedIndices(categories)
	s.externalFluxes = nil
	s.offsetCharges = nil

	if err := s.registerSlots(paramValues); err != nil {
		return err
	}
	for _, idx := range s.categories.Extended {
		if _, ok := s.phiRanges[idx]; !ok {
			s.phiRanges[idx] = [2]float64{s.cfg.DefaultPhiRangeMin, s.cfg.DefaultPhiRangeMax}
		}
	}

	// purely harmonic Hamiltonians bypass iterative diagonalization entirely
	s.isPurelyHarmonic = false
	substituted := s.substitutedHamiltonian()
	if symbolic.IsPurelyHarmonic(substituted, s.cfg.HarmonicTolerance) {
		if err := s.diagonalizePurelyHarmonic(substituted); err == nil {
			s.isPurelyHarmonic = true
			s.extBasis = BasisHarmonic
		} else {
			s.log.Debug().Err(err).Msg("quadratic form not separable, using standard diagonalization")
		}
	}

	s.hierarchical = len(s.hierarchy) > 0
	if s.hierarchical {
		if err := checkShape(s.hierarchy, s.truncSpec); err != nil {
			return err
		}
		if err := s.generateSubsystems(); err != nil {
			return err
		}
		if err := s.checkTruncationIndices(); err != nil {
			return err
		}
	}

	s.invalidate()
	s.state = Configured
	return nil
}

// teardownChildren unregisters and drops the whole child subtree.
func (s *Subsystem) teardownChildren() {
	for _, child := range s.children {
		child.teardownChildren()
		s.dispatcher.UnregisterAll(child)
	}
	s.children = nil
}

// generateSubsystems builds one child per hierarchy entry. A flat entry
// yields a leaf child whose Hamiltonian is the projection of the parent's
// onto terms inside that index set; a nested entry yields a child that itself
// performs hierarchical diagonalization, with the combined truncated
// dimension from the leading element of the truncation entry.
func (s *Subsystem) generateSubsystems() error {
	if err := s.checkPartition(); err != nil {
		return err
	}

	children := make([]*Subsystem, 0, len(s.hierarchy))
	for i, node := range s.hierarchy {
		indexSet := toIndexSet(node.AllIndices())
		child := &Subsystem{
			id:           newUUID(),
			log:          s.log.With().Int("subsystem", i).Logger(),
			cfg:          s.cfg,
			dispatcher:   s.dispatcher,
			parent:       s,
			hamiltonian:  s.hamiltonian.Project(indexSet, false),
			extBasis:     s.extBasis,
			phiRanges:    filterPhiRanges(s.phiRanges, indexSet),
			reg:          registry.New(s.log),
			truncatedDim: s.truncSpec[i].Dim,
			state:        Unconfigured,
		}
		child.installRegistryHooks()
		if !node.Flat() {
			child.hierarchy = Hierarchy(node.Nested)
			child.truncSpec = TruncationSpec(s.truncSpec[i].Nested)
		}
		if err := child.configure(nil); err != nil {
			return err
		}
		s.dispatcher.Register(dispatch.CircuitUpdate, child)
		children = append(children, child)
	}
	s.children = children
	return nil
}

// checkPartition verifies that the hierarchy entries partition this
// subsystem's variable indices disjointly and completely.
func (s *Subsystem) checkPartition() error {
	seen := make(map[int]int)
	for i, node := range s.hierarchy {
		indices := node.AllIndices()
		if len(indices) == 0 {
			return configErrorf("hierarchy entry %d selects no variables", i)
		}
		for _, idx := range indices {
			if prev, dup := seen[idx]; dup {
				return configErrorf("variable %d appears in hierarchy entries %d and %d", idx, prev, i)
			}
			seen[idx] = i
			if !contains(s.varIndices, idx) {
				return configErrorf("hierarchy entry %d references unknown variable %d", i, idx)
			}
		}
	}
	if len(seen) != len(s.varIndices) {
		missing := make([]int, 0)
		for _, idx := range s.varIndices {
			if _, ok := seen[idx]; !ok {
				missing = append(missing, idx)
			}
		}
		return configErrorf("hierarchy does not cover variables %v", missing)
	}
	return nil
}

// checkTruncationIndices verifies that no child requests a truncated
// dimension beyond the matrix dimension implied by its own cutoffs. The
// violation is fatal for the enclosing configure call.
func (s *Subsystem) checkTruncationIndices() error {
	for i, child := range s.children {
		available := child.totalDim()
		if child.truncatedDim > available {
			return configErrorf(
				"subsystem %d requests truncated dim %d but its cutoffs only provide dimension %d",
				i, child.truncatedDim, available)
		}
	}
	return nil
}

func quantizedIndices(categories symbolic.VariableCategories) []int {
	out := append([]int(nil), categories.Periodic...)
	out = append(out, categories.Extended...)
	sort.Ints(out)
	return out
}

func toIndexSet(indices []int) map[int]bool {
	out := make(map[int]bool, len(indices))
	for _, idx := range indices {
		out[idx] = true
	}
	return out
}

func filterPhiRanges(ranges map[int][2]float64, indices map[int]bool) map[int][2]float64 {
	out := make(map[int][2]float64)
	for idx, rng := range ranges {
		if indices[idx] {
			out[idx] = rng
		}
	}
	return out
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

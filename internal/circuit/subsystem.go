// Package circuit turns a symbolic circuit Hamiltonian into a tree of
// truncated numerical subsystems and reassembles tensor-product operators
// across that tree. The root Circuit owns a dispatcher; subsystems are owned
// exclusively by their parent and are destroyed and rebuilt, never patched,
// on structural changes.
package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/Roshan-Thomas/scqubits/internal/config"
	"github.com/Roshan-Thomas/scqubits/internal/discretization"
	"github.com/Roshan-Thomas/scqubits/internal/dispatch"
	"github.com/Roshan-Thomas/scqubits/internal/linalg"
	"github.com/Roshan-Thomas/scqubits/internal/registry"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// Subsystem is one node of the decomposition tree. The root circuit is a
// subsystem without a parent.
type Subsystem struct {
	id         string
	log        zerolog.Logger
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher

	parent *Subsystem

	hamiltonian    symbolic.Expr
	externalFluxes []string
	offsetCharges  []string
	categories     symbolic.VariableCategories
	varIndices     []int // quantized variables (periodic+extended), ascending
	extBasis       ExtBasis
	phiRanges      map[int][2]float64

	reg *registry.Registry

	hierarchy    Hierarchy
	truncSpec    TruncationSpec
	hierarchical bool
	children     []*Subsystem
	truncatedDim int

	state State

	// purely harmonic fast path
	isPurelyHarmonic bool
	normalModeFreqs  []float64
	modeToVar        *mat.Dense // flux coordinates in terms of normal coordinates
	modeToCharge     *mat.Dense // charge coordinates in terms of normal momenta
	modeLengths      []float64  // oscillator length per normal mode
	modeStale        bool       // normal mode data needs recomputation
	constOffset      float64

	hamCache   *mat.CDense
	eigenCache *linalg.EigenResult
	opMemo     map[string]*mat.CDense
}

// ID returns the instance identifier.
func (s *Subsystem) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Subsystem) State() State { return s.state }

// TruncatedDim returns the dimension this subsystem contributes to its
// parent's tensor space.
func (s *Subsystem) TruncatedDim() int { return s.truncatedDim }

// VariableIndices returns the quantized variable indices, ascending.
func (s *Subsystem) VariableIndices() []int {
	return append([]int(nil), s.varIndices...)
}

// Categories returns the variable category map.
func (s *Subsystem) Categories() symbolic.VariableCategories { return s.categories }

// Subsystems returns the child subsystems.
func (s *Subsystem) Subsystems() []*Subsystem { return s.children }

// IsPurelyHarmonic reports whether the harmonic fast path applies.
func (s *Subsystem) IsPurelyHarmonic() bool { return s.isPurelyHarmonic }

// NormalModeFreqs returns the fast-path normal mode frequencies, ascending.
func (s *Subsystem) NormalModeFreqs() []float64 {
	return append([]float64(nil), s.normalModeFreqs...)
}

// ClientID implements dispatch.Client.
func (s *Subsystem) ClientID() string { return s.id }

// ReceiveEvent implements dispatch.Client: a structural broadcast marks the
// subsystem out-of-sync. The flag is cleared only by an explicit rebuild.
func (s *Subsystem) ReceiveEvent(event dispatch.Event) {
	if event.Topic != dispatch.CircuitUpdate || event.SourceID == s.id {
		return
	}
	if s.state == Configured {
		s.state = OutOfSync
		s.invalidate()
	}
}

// invalidate drops every numeric cache. Symbolic structure is untouched.
func (s *Subsystem) invalidate() {
	s.hamCache = nil
	s.eigenCache = nil
	s.opMemo = nil
	s.modeStale = true
}

// invalidateUp invalidates this node and every ancestor, so owners recompose
// lazily on the next build.
func (s *Subsystem) invalidateUp() {
	for node := s; node != nil; node = node.parent {
		node.invalidate()
	}
}

// cutoffName returns the registry slot name for a variable's basis cutoff.
func (s *Subsystem) cutoffName(idx int) string {
	for _, p := range s.categories.Periodic {
		if p == idx {
			return fmt.Sprintf("cutoff_n_%d", idx)
		}
	}
	return fmt.Sprintf("cutoff_ext_%d", idx)
}

func (s *Subsystem) isPeriodic(idx int) bool {
	for _, p := range s.categories.Periodic {
		if p == idx {
			return true
		}
	}
	return false
}

// cutoffValue returns the integer cutoff for a variable.
func (s *Subsystem) cutoffValue(idx int) int {
	v, ok := s.reg.Get(s.cutoffName(idx))
	if !ok {
		return 0
	}
	return int(v)
}

// grid returns the discretization grid for an extended variable.
func (s *Subsystem) grid(idx int) (discretization.Grid1D, error) {
	rng, ok := s.phiRanges[idx]
	if !ok {
		rng = [2]float64{s.cfg.DefaultPhiRangeMin, s.cfg.DefaultPhiRangeMax}
	}
	return discretization.NewGrid1D(rng[0], rng[1], s.cutoffValue(idx))
}

// localDim returns the basis size of one variable.
func (s *Subsystem) localDim(idx int) int {
	if s.isPeriodic(idx) {
		return 2*s.cutoffValue(idx) + 1
	}
	return s.cutoffValue(idx)
}

// dims returns the ordered dimension list of the enclosing scope: local
// basis sizes for a leaf, truncated child dimensions under hierarchical
// diagonalization.
func (s *Subsystem) dims() []int {
	if s.hierarchical {
		out := make([]int, len(s.children))
		for i, child := range s.children {
			out[i] = child.truncatedDim
		}
		return out
	}
	if s.isPurelyHarmonic {
		return s.modeDims()
	}
	out := make([]int, len(s.varIndices))
	for i, idx := range s.varIndices {
		out[i] = s.localDim(idx)
	}
	return out
}

// totalDim returns the dimension of this subsystem's full (untruncated)
// matrix representation.
func (s *Subsystem) totalDim() int {
	total := 1
	for _, d := range s.dims() {
		total *= d
	}
	return total
}

// Dimension reports the matrix dimension of the assembled Hamiltonian.
func (s *Subsystem) Dimension() int { return s.totalDim() }

// registerSlots creates registry slots for every symbol the subsystem's
// Hamiltonian references, taking initial values from the parent (or the
// supplied parameter map at the root). Each name registers at most once.
func (s *Subsystem) registerSlots(paramValues map[string]float64) error {
	inherit := func(name string, fallback float64) float64 {
		if s.parent != nil {
			if v, ok := s.parent.reg.Get(name); ok {
				return v
			}
		}
		if v, ok := paramValues[name]; ok {
			return v
		}
		return fallback
	}

	for _, name := range s.hamiltonian.FreeSymbols() {
		kind, _, ok := symbolic.ClassifySymbol(name)
		if !ok {
			// parameter symbol
			if !s.reg.Has(name) {
				if _, exists := paramValues[name]; !exists && s.parent == nil {
					return configErrorf("no value supplied for circuit parameter %q", name)
				}
				if err := s.reg.Register(name, inherit(name, 0), registry.UpdateParamVars); err != nil {
					return err
				}
			}
			continue
		}
		switch kind {
		case symbolic.KindExternalFlux:
			if !s.reg.Has(name) {
				if err := s.reg.Register(name, inherit(name, 0), registry.UpdateExternalFluxOrCharge); err != nil {
					return err
				}
			}
			s.externalFluxes = appendUnique(s.externalFluxes, name)
		case symbolic.KindOffsetCharge:
			if !s.reg.Has(name) {
				if err := s.reg.Register(name, inherit(name, 0), registry.UpdateExternalFluxOrCharge); err != nil {
					return err
				}
			}
			s.offsetCharges = appendUnique(s.offsetCharges, name)
		}
	}
	sort.Strings(s.externalFluxes)
	sort.Strings(s.offsetCharges)

	for _, idx := range s.categories.Periodic {
		name := fmt.Sprintf("cutoff_n_%d", idx)
		if !s.reg.Has(name) {
			if err := s.reg.Register(name, inherit(name, float64(s.cfg.DefaultPeriodicCutoff)), registry.UpdateCutoffs); err != nil {
				return err
			}
		}
	}
	for _, idx := range s.categories.Extended {
		name := fmt.Sprintf("cutoff_ext_%d", idx)
		if !s.reg.Has(name) {
			if err := s.reg.Register(name, inherit(name, float64(s.cfg.DefaultExtendedCutoff)), registry.UpdateCutoffs); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendUnique(list []string, name string) []string {
	for _, v := range list {
		if v == name {
			return list
		}
	}
	return append(list, name)
}

// Set writes a parameter, flux, offset charge or cutoff. The write validates,
// mutates in place, propagates to every descendant owning the slot and marks
// numeric caches stale. It never broadcasts a structural update.
func (s *Subsystem) Set(name string, value float64) error {
	if !s.reg.Has(name) {
		return &ValidationError{Name: name, Value: value, Reason: "no such parameter"}
	}
	if err := s.checkCutoffShrink(name, value); err != nil {
		return err
	}
	if err := s.reg.Set(name, value); err != nil {
		return err
	}
	s.invalidateUp()
	for _, child := range s.children {
		if child.reg.Has(name) {
			if err := child.Set(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCutoffShrink rejects a cutoff write that would leave any subsystem in
// this subtree with a truncated dimension larger than the basis dimension its
// cutoffs provide. The check runs before anything is stored, so a rejected
// write leaves the whole tree untouched.
func (s *Subsystem) checkCutoffShrink(name string, value float64) error {
	if !strings.HasPrefix(name, "cutoff_") {
		return nil
	}
	var check func(node *Subsystem) error
	check = func(node *Subsystem) error {
		if node.parent != nil && !node.hierarchical && node.reg.Has(name) {
			if available := node.totalDimWithCutoff(name, int(value)); node.truncatedDim > available {
				return &ValidationError{
					Name:  name,
					Value: value,
					Reason: fmt.Sprintf("cutoff leaves dimension %d, below the subsystem's truncated dim %d",
						available, node.truncatedDim),
				}
			}
		}
		for _, child := range node.children {
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	return check(s)
}

// totalDimWithCutoff computes this subsystem's full dimension with one cutoff
// slot hypothetically set to value.
func (s *Subsystem) totalDimWithCutoff(slot string, value int) int {
	total := 1
	for _, idx := range s.varIndices {
		v := s.cutoffValue(idx)
		if s.cutoffName(idx) == slot {
			v = value
		}
		if s.isPeriodic(idx) {
			total *= 2*v + 1
		} else {
			total *= v
		}
	}
	return total
}

// Get reads a registry slot value.
func (s *Subsystem) Get(name string) (float64, bool) {
	return s.reg.Get(name)
}

// ParameterNames lists the registered circuit parameter slots.
func (s *Subsystem) ParameterNames() []string {
	return s.reg.Names(registry.UpdateParamVars)
}

// CutoffNames lists the registered cutoff slots.
func (s *Subsystem) CutoffNames() []string {
	return s.reg.Names(registry.UpdateCutoffs)
}

// substitutedHamiltonian folds the current registry values for parameters,
// fluxes and offset charges into the symbolic Hamiltonian, leaving only
// dynamical symbols.
func (s *Subsystem) substitutedHamiltonian() symbolic.Expr {
	return s.hamiltonian.SubstituteParams(s.reg.Values())
}

// newUUID is separated for clarity at call sites.
func newUUID() string { return uuid.NewString() }

package circuit

import (
	"github.com/rs/zerolog"

	"github.com/Roshan-Thomas/scqubits/internal/config"
	"github.com/Roshan-Thomas/scqubits/internal/dispatch"
	"github.com/Roshan-Thomas/scqubits/internal/registry"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// Options configures a new root circuit.
type Options struct {
	// ExtBasis selects the basis for extended variables; defaults to
	// BasisDiscretized. A purely harmonic Hamiltonian forces BasisHarmonic.
	ExtBasis ExtBasis
	// TruncatedDim is the dimension exposed when the circuit is composed
	// into a larger system. Defaults to 10.
	TruncatedDim int
	// FluxDynamic disables user-chosen closure branches; flux allocation is
	// assumed time dependent.
	FluxDynamic bool
	Config      *config.Config
	Logger      zerolog.Logger
}

// Circuit is the root quantized model. It owns the dispatcher and the
// structural configuration fields shared by the whole tree.
type Circuit struct {
	*Subsystem

	transformationMatrix [][]float64
	closureBranches      []ClosureBranch
	fluxDynamic          bool

	// initial constructor arguments, kept for serialization
	initialParams map[string]float64
}

// New quantizes a symbolic Hamiltonian. Parameter values must be supplied for
// every parameter symbol in the expression.
func New(hamiltonian symbolic.Expr, params map[string]float64, opts Options) (*Circuit, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	extBasis := opts.ExtBasis
	if extBasis == "" {
		extBasis = BasisDiscretized
	}
	if extBasis != BasisDiscretized && extBasis != BasisHarmonic {
		return nil, configErrorf("unknown ext basis %q", extBasis)
	}
	truncatedDim := opts.TruncatedDim
	if truncatedDim == 0 {
		truncatedDim = 10
	}

	log := opts.Logger.With().Str("component", "circuit").Logger()
	root := &Subsystem{
		id:           newUUID(),
		log:          log,
		cfg:          cfg,
		dispatcher:   dispatch.New(opts.Logger),
		hamiltonian:  hamiltonian.Copy(),
		extBasis:     extBasis,
		phiRanges:    make(map[int][2]float64),
		reg:          registry.New(opts.Logger),
		truncatedDim: truncatedDim,
		state:        Unconfigured,
	}
	root.installRegistryHooks()

	c := &Circuit{
		Subsystem:     root,
		fluxDynamic:   opts.FluxDynamic,
		initialParams: copyFloatMap(params),
	}

	if err := c.Configure(ConfigureOptions{}); err != nil {
		return nil, err
	}
	return c, nil
}

// installRegistryHooks wires the update-kind dispatch table: every write kind
// invalidates the local numeric caches; regeneration happens lazily on the
// next build.
func (s *Subsystem) installRegistryHooks() {
	invalidating := func(string, float64) { s.invalidate() }
	s.reg.SetHandler(registry.UpdateCutoffs, invalidating)
	s.reg.SetHandler(registry.UpdateParamVars, invalidating)
	s.reg.SetHandler(registry.UpdateExternalFluxOrCharge, invalidating)
	s.reg.SetHandler(registry.UpdateExtBasis, invalidating)
}

// ConfigureOptions carries the mutable structural configuration. Nil fields
// keep their current values.
type ConfigureOptions struct {
	TransformationMatrix [][]float64
	SystemHierarchy      Hierarchy
	SubsystemTruncDims   TruncationSpec
	ClosureBranches      []ClosureBranch
}

// Configure re-initializes the circuit for a new hierarchy, truncation spec,
// transformation matrix or closure-branch choice. On any failure the prior
// configuration is fully restored and a single ConfigurationError is
// returned: callers observe either a consistent post-call object or the
// unchanged pre-call object.
func (c *Circuit) Configure(opts ConfigureOptions) error {
	if c.state == Rebuilding {
		return configErrorf("re-entrant configure call on circuit %s", c.id)
	}

	// pre-call snapshot of the mutable configuration fields
	oldHierarchy := c.hierarchy
	oldTruncSpec := c.truncSpec
	oldTransformation := c.transformationMatrix
	oldClosure := c.closureBranches

	if opts.ClosureBranches != nil && c.fluxDynamic {
		return configErrorf("closure branches cannot be chosen when flux is dynamic")
	}
	if opts.TransformationMatrix != nil {
		if err := checkSquare(opts.TransformationMatrix); err != nil {
			return err
		}
		c.transformationMatrix = opts.TransformationMatrix
	}
	if opts.SystemHierarchy != nil {
		c.hierarchy = opts.SystemHierarchy
	}
	if opts.SubsystemTruncDims != nil {
		c.truncSpec = opts.SubsystemTruncDims
	}
	if opts.ClosureBranches != nil {
		c.closureBranches = opts.ClosureBranches
	}

	// old subsystems learn they are stale before being replaced
	if c.state == Configured {
		c.dispatcher.Broadcast(dispatch.CircuitUpdate, c.id, map[string]interface{}{
			"reason": "configure",
		})
	}

	if err := c.configure(c.initialParams); err != nil {
		// roll back and restore the previous consistent configuration
		c.hierarchy = oldHierarchy
		c.truncSpec = oldTruncSpec
		c.transformationMatrix = oldTransformation
		c.closureBranches = oldClosure
		if restoreErr := c.configure(c.initialParams); restoreErr != nil {
			c.log.Error().Err(restoreErr).Msg("restoring pre-call configuration failed")
		}
		return &ConfigurationError{Reason: "configure failed", Err: err}
	}
	return nil
}

// Rebuild re-synchronizes a subsystem that a structural broadcast marked
// out-of-sync.
func (s *Subsystem) Rebuild() error {
	if s.state != OutOfSync {
		return nil
	}
	return s.configure(nil)
}

// SetDiscretizedPhiRange sets the flux grid range for discretized extended
// variables. The write regenerates only local operators.
func (s *Subsystem) SetDiscretizedPhiRange(varIndices []int, phiRange [2]float64) error {
	if s.extBasis != BasisDiscretized {
		return configErrorf("discretized phi range only applies to the discretized basis, not %q", s.extBasis)
	}
	if phiRange[0] >= phiRange[1] {
		return configErrorf("phi range is empty: [%g, %g]", phiRange[0], phiRange[1])
	}
	for _, idx := range varIndices {
		isExtended := false
		for _, e := range s.categories.Extended {
			if e == idx {
				isExtended = true
				break
			}
		}
		if !isExtended {
			return configErrorf("variable %d is not an extended variable", idx)
		}
	}
	for _, idx := range varIndices {
		s.phiRanges[idx] = phiRange
		for _, child := range s.children {
			for _, cidx := range child.varIndices {
				if cidx == idx {
					if err := child.SetDiscretizedPhiRange([]int{idx}, phiRange); err != nil {
						return err
					}
				}
			}
		}
	}
	s.invalidateUp()
	return nil
}

// ClosureBranches returns the configured closure branches.
func (c *Circuit) ClosureBranches() []ClosureBranch { return c.closureBranches }

// TransformationMatrix returns the configured variable transformation.
func (c *Circuit) TransformationMatrix() [][]float64 { return c.transformationMatrix }

// SystemHierarchy returns the configured hierarchy.
func (c *Circuit) SystemHierarchy() Hierarchy { return c.hierarchy }

// SubsystemTruncDims returns the configured truncation spec.
func (c *Circuit) SubsystemTruncDims() TruncationSpec { return c.truncSpec }

// ExternalFluxNames returns the external flux slot names.
func (s *Subsystem) ExternalFluxNames() []string {
	return append([]string(nil), s.externalFluxes...)
}

// OffsetChargeNames returns the offset charge slot names.
func (s *Subsystem) OffsetChargeNames() []string {
	return append([]string(nil), s.offsetCharges...)
}

func checkSquare(m [][]float64) error {
	for _, row := range m {
		if len(row) != len(m) {
			return configErrorf("transformation matrix must be square, got %d rows and a row of length %d",
				len(m), len(row))
		}
	}
	return nil
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

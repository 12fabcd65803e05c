// Package registry holds the mutable named slots of a quantized system:
// circuit parameters, external fluxes, offset charges and basis cutoffs.
// Each slot carries an update kind; writes validate, store, then invoke the
// regeneration hook installed for that kind. This replaces the dynamic
// per-name attribute creation of the original design with an explicit
// mapping plus a dispatch table.
package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// UpdateKind selects which regeneration hook a write to a slot triggers.
type UpdateKind int

const (
	// UpdateCutoffs regenerates cutoff-dependent operators.
	UpdateCutoffs UpdateKind = iota
	// UpdateParamVars regenerates the parameter-dependent Hamiltonian.
	UpdateParamVars
	// UpdateExternalFluxOrCharge regenerates the flux/charge-dependent
	// Hamiltonian.
	UpdateExternalFluxOrCharge
	// UpdateExtBasis regenerates the basis-dependent operator set.
	UpdateExtBasis
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateCutoffs:
		return "cutoffs"
	case UpdateParamVars:
		return "param_vars"
	case UpdateExternalFluxOrCharge:
		return "external_flux_or_charge"
	case UpdateExtBasis:
		return "ext_basis"
	}
	return "unknown"
}

// ValidationError rejects a single write and leaves all state untouched.
type ValidationError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %g for %q: %s", e.Value, e.Name, e.Reason)
}

// Handler is a regeneration hook invoked after a successful write.
type Handler func(name string, value float64)

type slot struct {
	value float64
	kind  UpdateKind
}

// Registry maps slot names to values and update kinds.
type Registry struct {
	slots    map[string]*slot
	handlers map[UpdateKind]Handler
	log      zerolog.Logger
}

// New creates an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		slots:    make(map[string]*slot),
		handlers: make(map[UpdateKind]Handler),
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// SetHandler installs the regeneration hook for an update kind.
func (r *Registry) SetHandler(kind UpdateKind, h Handler) {
	r.handlers[kind] = h
}

// Register creates a slot. Each name may be registered at most once.
func (r *Registry) Register(name string, initial float64, kind UpdateKind) error {
	if _, exists := r.slots[name]; exists {
		return fmt.Errorf("slot %q is already registered", name)
	}
	if err := validate(name, initial, kind); err != nil {
		return err
	}
	r.slots[name] = &slot{value: initial, kind: kind}
	return nil
}

// Has reports whether the slot exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.slots[name]
	return ok
}

// Get returns the slot value.
func (r *Registry) Get(name string) (float64, bool) {
	s, ok := r.slots[name]
	if !ok {
		return 0, false
	}
	return s.value, true
}

// Set validates and stores a value, then invokes the handler for the slot's
// update kind. A validation failure leaves the slot untouched.
func (r *Registry) Set(name string, value float64) error {
	s, ok := r.slots[name]
	if !ok {
		return fmt.Errorf("slot %q is not registered", name)
	}
	if err := validate(name, value, s.kind); err != nil {
		return err
	}
	s.value = value
	r.log.Debug().Str("slot", name).Float64("value", value).
		Str("kind", s.kind.String()).Msg("slot updated")
	if h, ok := r.handlers[s.kind]; ok {
		h(name, value)
	}
	return nil
}

// SetQuiet stores a value without invoking any handler, for bulk restores.
func (r *Registry) SetQuiet(name string, value float64) error {
	s, ok := r.slots[name]
	if !ok {
		return fmt.Errorf("slot %q is not registered", name)
	}
	if err := validate(name, value, s.kind); err != nil {
		return err
	}
	s.value = value
	return nil
}

// Names returns the sorted slot names of an update kind.
func (r *Registry) Names(kind UpdateKind) []string {
	var out []string
	for name, s := range r.slots {
		if s.kind == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Values returns a snapshot of every slot value.
func (r *Registry) Values() map[string]float64 {
	out := make(map[string]float64, len(r.slots))
	for name, s := range r.slots {
		out[name] = s.value
	}
	return out
}

func validate(name string, value float64, kind UpdateKind) error {
	switch kind {
	case UpdateCutoffs:
		if value < 1 || value != math.Trunc(value) {
			return &ValidationError{Name: name, Value: value, Reason: "cutoffs must be positive integers"}
		}
	default:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &ValidationError{Name: name, Value: value, Reason: "value must be finite"}
		}
	}
	return nil
}

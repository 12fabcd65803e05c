package symbolic

import (
	"math"
	"regexp"
	"sort"
)

// SymbolKind categorizes a symbol by its name pattern, following the
// conventions of the symbolic-graph builder: n<i> periodic charge, Q<i>
// extended charge, θ<i> flux/angle coordinate, ng<i> offset charge, Φ<i>
// external flux. Anything else is a circuit parameter.
type SymbolKind int

const (
	KindParameter SymbolKind = iota
	KindPeriodicCharge
	KindExtendedCharge
	KindFluxCoordinate
	KindOffsetCharge
	KindExternalFlux
)

// IsDynamical reports whether the kind represents a quantized degree of
// freedom rather than an externally set quantity.
func (k SymbolKind) IsDynamical() bool {
	switch k {
	case KindPeriodicCharge, KindExtendedCharge, KindFluxCoordinate:
		return true
	}
	return false
}

var (
	periodicChargePattern = regexp.MustCompile(`^n(\d+)$`)
	extendedChargePattern = regexp.MustCompile(`^Q(\d+)$`)
	fluxCoordinatePattern = regexp.MustCompile(`^θ(\d+)$`)
	offsetChargePattern   = regexp.MustCompile(`^ng(\d+)$`)
	externalFluxPattern   = regexp.MustCompile(`^Φ(\d+)$`)
)

// ClassifySymbol resolves a symbol name to its kind and variable index. The
// third return value is false for parameter symbols and for malformed names
// without a trailing index, which are excluded from categorization.
func ClassifySymbol(name string) (SymbolKind, int, bool) {
	for kind, pattern := range map[SymbolKind]*regexp.Regexp{
		KindPeriodicCharge: periodicChargePattern,
		KindExtendedCharge: extendedChargePattern,
		KindFluxCoordinate: fluxCoordinatePattern,
		KindOffsetCharge:   offsetChargePattern,
		KindExternalFlux:   externalFluxPattern,
	} {
		if m := pattern.FindStringSubmatch(name); m != nil {
			return kind, atoiDigits(m[1]), true
		}
	}
	return KindParameter, 0, false
}

func atoiDigits(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// VariableCategories groups variable indices by their category.
type VariableCategories struct {
	Periodic []int
	Extended []int
	Free     []int
	Frozen   []int
}

// Contains reports whether the index appears in any category.
func (vc VariableCategories) Contains(idx int) bool {
	for _, group := range [][]int{vc.Periodic, vc.Extended, vc.Free, vc.Frozen} {
		for _, v := range group {
			if v == idx {
				return true
			}
		}
	}
	return false
}

// AllIndices returns the sorted union of all categories.
func (vc VariableCategories) AllIndices() []int {
	set := make(map[int]struct{})
	for _, group := range [][]int{vc.Periodic, vc.Extended, vc.Free, vc.Frozen} {
		for _, v := range group {
			set[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Filter returns the categories restricted to the given index set; a child
// subsystem's categories are always a filtered subset of its parent's.
func (vc VariableCategories) Filter(indices map[int]bool) VariableCategories {
	keep := func(group []int) []int {
		var out []int
		for _, v := range group {
			if indices[v] {
				out = append(out, v)
			}
		}
		return out
	}
	return VariableCategories{
		Periodic: keep(vc.Periodic),
		Extended: keep(vc.Extended),
		Free:     keep(vc.Free),
		Frozen:   keep(vc.Frozen),
	}
}

// Classify inspects the free symbols of a Hamiltonian and returns external
// flux names, offset charge names and the variable categories. A variable
// with a periodic charge symbol is periodic; one with an extended charge
// symbol is extended when its flux coordinate appears in the potential and
// free otherwise; a flux coordinate without a conjugate charge is frozen.
func Classify(e Expr) (externalFluxes []string, offsetCharges []string, categories VariableCategories) {
	potentialIdx := make(map[int]bool)
	for _, t := range e.PotentialTerms().Terms {
		for _, idx := range t.VariableIndices() {
			potentialIdx[idx] = true
		}
	}

	chargeKind := make(map[int]SymbolKind)
	fluxOnly := make(map[int]bool)
	for _, name := range e.FreeSymbols() {
		kind, idx, ok := ClassifySymbol(name)
		if !ok {
			continue
		}
		switch kind {
		case KindExternalFlux:
			externalFluxes = append(externalFluxes, name)
		case KindOffsetCharge:
			offsetCharges = append(offsetCharges, name)
		case KindPeriodicCharge, KindExtendedCharge:
			chargeKind[idx] = kind
		case KindFluxCoordinate:
			fluxOnly[idx] = true
		}
	}
	sort.Strings(externalFluxes)
	sort.Strings(offsetCharges)

	indices := make(map[int]struct{})
	for idx := range chargeKind {
		indices[idx] = struct{}{}
	}
	for idx := range fluxOnly {
		indices[idx] = struct{}{}
	}
	sorted := make([]int, 0, len(indices))
	for idx := range indices {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	for _, idx := range sorted {
		kind, hasCharge := chargeKind[idx]
		switch {
		case hasCharge && kind == KindPeriodicCharge:
			categories.Periodic = append(categories.Periodic, idx)
		case hasCharge && potentialIdx[idx]:
			categories.Extended = append(categories.Extended, idx)
		case hasCharge:
			categories.Free = append(categories.Free, idx)
		default:
			categories.Frozen = append(categories.Frozen, idx)
		}
	}
	return externalFluxes, offsetCharges, categories
}

// IsPotentialTerm reports whether any free symbol of the term denotes an
// angle- or flux-type quantity.
func IsPotentialTerm(t Term) bool {
	for _, name := range t.FreeSymbols() {
		kind, _, ok := ClassifySymbol(name)
		if ok && (kind == KindFluxCoordinate || kind == KindExternalFlux) {
			return true
		}
	}
	return false
}

// PotentialTerms returns the sub-expression of potential terms.
func (e Expr) PotentialTerms() Expr {
	out := Expr{}
	for _, t := range e.Terms {
		if IsPotentialTerm(t) {
			out.Terms = append(out.Terms, t.Copy())
		}
	}
	return out
}

// KineticTerms returns the sub-expression of kinetic terms.
func (e Expr) KineticTerms() Expr {
	out := Expr{}
	for _, t := range e.Terms {
		if !IsPotentialTerm(t) {
			out.Terms = append(out.Terms, t.Copy())
		}
	}
	return out
}

// SecondOrder expands every trig factor to second order around zero,
// cos(x) -> 1 - x²/2 and sin(x) -> x, returning a purely polynomial
// expression. Only single-trig terms are expanded; a term with several trig
// factors is returned unexpanded (it can never be harmonic anyway).
func (e Expr) SecondOrder() Expr {
	out := Expr{}
	for _, t := range e.Terms {
		if len(t.Trigs) != 1 {
			out.Terms = append(out.Terms, t.Copy())
			continue
		}
		tr := t.Trigs[0]
		base := NewTerm(t.Coeff, t.Pows)
		switch tr.Fn {
		case Sin:
			out.Terms = append(out.Terms, linearTimes(base, tr.Arg)...)
		case Cos:
			constant := base.Copy()
			out.Terms = append(out.Terms, constant)
			for _, quad := range quadraticOf(tr.Arg) {
				scaled := base.Copy()
				scaled.Coeff *= -0.5 * quad.Coeff
				for name, pow := range quad.Pows {
					scaled.Pows[name] += pow
				}
				out.Terms = append(out.Terms, scaled)
			}
		}
	}
	return out
}

func linearTimes(base Term, arg Linear) []Term {
	var out []Term
	for name, c := range arg.Coeffs {
		t := base.Copy()
		t.Coeff *= c
		t.Pows[name]++
		out = append(out, t)
	}
	if arg.Const != 0 {
		t := base.Copy()
		t.Coeff *= arg.Const
		out = append(out, t)
	}
	return out
}

// quadraticOf expands (sum c_i x_i + c0)² into polynomial terms.
func quadraticOf(arg Linear) []Term {
	names := sortedKeys(toSet(arg.Coeffs))
	var out []Term
	for i, a := range names {
		for j := i; j < len(names); j++ {
			b := names[j]
			coeff := arg.Coeffs[a] * arg.Coeffs[b]
			pows := map[string]int{a: 1}
			if a == b {
				pows[a] = 2
			} else {
				coeff *= 2
				pows[b] = 1
			}
			out = append(out, NewTerm(coeff, pows))
		}
		if arg.Const != 0 {
			out = append(out, NewTerm(2*arg.Const*arg.Coeffs[a], map[string]int{a: 1}))
		}
	}
	if arg.Const != 0 {
		out = append(out, NewTerm(arg.Const*arg.Const, nil))
	}
	return out
}

// IsPurelyHarmonic reports whether the expression is an exact quadratic form
// in its dynamical variables, up to the given tolerance: a term whose
// second-order expansion differs from the term itself (a trig factor, or a
// polynomial of degree above two) disqualifies the expression unless its
// coefficient is below tol. Parameters must already be substituted so that
// coefficients are numeric.
func IsPurelyHarmonic(e Expr, tol float64) bool {
	for _, t := range e.Terms {
		if len(t.Trigs) > 0 {
			if math.Abs(t.Coeff) > tol {
				return false
			}
			continue
		}
		degree := 0
		for name, pow := range t.Pows {
			if kind, _, ok := ClassifySymbol(name); ok && kind.IsDynamical() {
				degree += pow
			} else if !ok {
				// unresolved parameter symbol: coefficient is not numeric
				return false
			}
		}
		if degree > 2 && math.Abs(t.Coeff) > tol {
			return false
		}
	}
	return true
}

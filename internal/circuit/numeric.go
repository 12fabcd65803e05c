package circuit

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Roshan-Thomas/scqubits/internal/linalg"
	"github.com/Roshan-Thomas/scqubits/internal/operators"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// Hamiltonian evaluates the numeric Hamiltonian in this subsystem's
// representation space. Hierarchical subsystems compose truncated child
// spectra plus interaction terms; purely harmonic ones are assembled
// diagonally from normal modes; everything else is built term by term from
// basis operators. The result is cached until the next parameter write.
func (s *Subsystem) Hamiltonian() (*mat.CDense, error) {
	if err := s.ensureUsable(); err != nil {
		return nil, err
	}
	if s.hamCache != nil {
		return s.hamCache, nil
	}

	var h *mat.CDense
	var err error
	switch {
	case s.hierarchical:
		h, err = s.buildHierarchical()
	case s.isPurelyHarmonic:
		h, err = s.buildHarmonicDiagonal()
	default:
		h, err = s.buildDirect()
	}
	if err != nil {
		return nil, err
	}

	if defect := linalg.HermitianDefect(h); defect > s.cfg.HermiticityTolerance {
		return nil, configErrorf("assembled Hamiltonian is not Hermitian (defect %g)", defect)
	}
	s.hamCache = h
	return h, nil
}

// ensureUsable rejects numeric requests on stale or unconfigured subsystems.
func (s *Subsystem) ensureUsable() error {
	switch s.state {
	case OutOfSync:
		return &StructuralSyncError{SubsystemID: s.id}
	case Unconfigured:
		return configErrorf("subsystem has not been configured")
	}
	return nil
}

// repDim is the dimension of the space numeric operators live in: the
// truncated product space under hierarchical diagonalization, the full local
// product space otherwise.
func (s *Subsystem) repDim() int {
	dims := s.dims()
	total := 1
	for _, d := range dims {
		total *= d
	}
	return total
}

func (s *Subsystem) buildDirect() (*mat.CDense, error) {
	sub := s.substitutedHamiltonian()
	h := mat.NewCDense(s.repDim(), s.repDim(), nil)
	for _, t := range sub.Terms {
		op, err := s.termOperator(t)
		if err != nil {
			return nil, err
		}
		h = linalg.Add(h, op)
	}
	return h, nil
}

// buildHierarchical adds each child's truncated spectrum on its own tensor
// slot, then the interaction terms that straddle child boundaries. Terms
// fully inside one child already live in that child's Hamiltonian and are
// skipped here.
func (s *Subsystem) buildHierarchical() (*mat.CDense, error) {
	dim := s.repDim()
	h := mat.NewCDense(dim, dim, nil)

	for i, child := range s.children {
		res, err := child.eigensys(child.truncatedDim)
		if err != nil {
			return nil, err
		}
		mats := make([]*mat.CDense, len(s.children))
		for j, sibling := range s.children {
			if j == i {
				mats[j] = linalg.DiagReal(res.Values)
			} else {
				mats[j] = linalg.Identity(sibling.truncatedDim)
			}
		}
		h = linalg.Add(h, linalg.KronAll(mats...))
	}

	sub := s.substitutedHamiltonian()
	for _, t := range sub.Terms {
		indices := t.VariableIndices()
		if len(indices) > 0 && s.ownedByOneChild(indices) {
			continue
		}
		op, err := s.termOperator(t)
		if err != nil {
			return nil, err
		}
		h = linalg.Add(h, op)
	}
	return h, nil
}

func (s *Subsystem) ownedByOneChild(indices []int) bool {
	owner := s.childOwning(indices[0])
	if owner < 0 {
		return false
	}
	for _, idx := range indices[1:] {
		if s.childOwning(idx) != owner {
			return false
		}
	}
	return true
}

// termOperator evaluates one fully substituted term in this subsystem's
// representation space. Numeric trig factors over constant arguments fold
// into the scalar prefactor.
func (s *Subsystem) termOperator(t symbolic.Term) (*mat.CDense, error) {
	scalar := complex(t.Coeff, 0)
	var op *mat.CDense
	mulInto := func(f *mat.CDense) {
		if op == nil {
			op = f
		} else {
			op = linalg.Mul(op, f)
		}
	}

	names := make([]string, 0, len(t.Pows))
	for name := range t.Pows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pow := t.Pows[name]
		if pow == 0 {
			continue
		}
		kind, idx, ok := symbolic.ClassifySymbol(name)
		if !ok || !kind.IsDynamical() {
			return nil, configErrorf("unresolved symbol %q in numeric assembly", name)
		}
		factor, err := s.memoized(fmt.Sprintf("%s^%d", name, pow), func() (*mat.CDense, error) {
			return s.varOperatorFull(kind, idx, pow)
		})
		if err != nil {
			return nil, err
		}
		mulInto(factor)
	}

	for _, tr := range t.Trigs {
		sc, factor, err := s.trigFactor(tr)
		if err != nil {
			return nil, err
		}
		scalar *= sc
		if factor != nil {
			mulInto(factor)
		}
	}

	if op == nil {
		return linalg.Scale(scalar, linalg.Identity(s.repDim())), nil
	}
	return linalg.Scale(scalar, op), nil
}

// varOperatorFull returns (operator for the symbol)^pow in this subsystem's
// representation space. Powers are applied before any truncated-eigenbasis
// rotation so truncation does not distort them.
func (s *Subsystem) varOperatorFull(kind symbolic.SymbolKind, idx, pow int) (*mat.CDense, error) {
	switch {
	case s.hierarchical:
		childPos := s.childOwning(idx)
		if childPos < 0 {
			return nil, configErrorf("no subsystem owns variable %d", idx)
		}
		inner, err := s.children[childPos].varOperatorFull(kind, idx, pow)
		if err != nil {
			return nil, err
		}
		return s.wrapChildOperator(childPos, inner)
	case s.isPurelyHarmonic:
		base, err := s.modeVarOperator(kind, idx)
		if err != nil {
			return nil, err
		}
		if pow > 1 {
			base = linalg.MatPow(base, pow)
		}
		return base, nil
	default:
		local, err := s.localVarOperator(kind, idx, pow)
		if err != nil {
			return nil, err
		}
		return s.kronOperator(local, idx)
	}
}

// localVarOperator builds the single-variable operator in the variable's own
// basis: charge-number states for periodic variables, real-space grids or
// oscillator ladders for extended ones.
func (s *Subsystem) localVarOperator(kind symbolic.SymbolKind, idx, pow int) (*mat.CDense, error) {
	if s.isPeriodic(idx) {
		if kind != symbolic.KindPeriodicCharge {
			return nil, configErrorf("flux coordinate θ%d of a compact variable only enters through trig factors", idx)
		}
		return linalg.MatPow(operators.NTheta(s.cutoffValue(idx)), pow), nil
	}

	switch s.extBasis {
	case BasisDiscretized:
		grid, err := s.grid(idx)
		if err != nil {
			return nil, err
		}
		switch kind {
		case symbolic.KindExtendedCharge:
			if pow == 2 {
				return operators.QPhiSquared(grid), nil
			}
			return linalg.MatPow(operators.QPhi(grid), pow), nil
		case symbolic.KindFluxCoordinate:
			return linalg.MatPow(operators.Phi(grid), pow), nil
		}
	case BasisHarmonic:
		length, err := s.oscLength(idx)
		if err != nil {
			return nil, err
		}
		dim := s.cutoffValue(idx)
		switch kind {
		case symbolic.KindExtendedCharge:
			return linalg.MatPow(operators.MomentumOsc(dim, length), pow), nil
		case symbolic.KindFluxCoordinate:
			return linalg.MatPow(operators.PositionOsc(dim, length), pow), nil
		}
	}
	return nil, configErrorf("no operator for symbol kind %d on variable %d", kind, idx)
}

// oscLength derives the oscillator length (a/b)^{1/4} for one extended
// variable from the second-order expansion of the substituted Hamiltonian,
// with a the Q² and b the θ² coefficient. Degenerate coefficients fall back
// to unit length.
func (s *Subsystem) oscLength(idx int) (float64, error) {
	expanded := s.substitutedHamiltonian().SecondOrder()
	var a, b float64
	chargeName := fmt.Sprintf("Q%d", idx)
	fluxName := fmt.Sprintf("θ%d", idx)
	for _, t := range expanded.Terms {
		if len(t.Trigs) > 0 {
			continue
		}
		if len(t.Pows) == 1 {
			if pow, ok := t.Pows[chargeName]; ok && pow == 2 {
				a += t.Coeff
			}
			if pow, ok := t.Pows[fluxName]; ok && pow == 2 {
				b += t.Coeff
			}
		}
	}
	if a <= 0 || b <= 0 {
		s.log.Debug().Int("variable", idx).Msg("no quadratic confinement, using unit oscillator length")
		return 1, nil
	}
	return math.Pow(a/b, 0.25), nil
}

// trigFactor evaluates a cos/sin factor. A constant argument folds to a
// scalar; a dynamical argument becomes (U·e^{ic} ± h.c.)/2 where U is the
// product of single-variable exp(i·a·θ) operators.
func (s *Subsystem) trigFactor(tr symbolic.Trig) (complex128, *mat.CDense, error) {
	dynCoeffs := make(map[int]float64)
	for name, coeff := range tr.Arg.Coeffs {
		kind, idx, ok := symbolic.ClassifySymbol(name)
		if !ok || !kind.IsDynamical() {
			return 0, nil, configErrorf("unresolved symbol %q inside trig argument", name)
		}
		if kind != symbolic.KindFluxCoordinate {
			return 0, nil, configErrorf("charge symbol %q inside trig argument is unsupported", name)
		}
		dynCoeffs[idx] = coeff
	}

	if len(dynCoeffs) == 0 {
		switch tr.Fn {
		case symbolic.Cos:
			return complex(math.Cos(tr.Arg.Const), 0), nil, nil
		case symbolic.Sin:
			return complex(math.Sin(tr.Arg.Const), 0), nil, nil
		}
		return 0, nil, configErrorf("unknown trig function %v", tr.Fn)
	}

	op, err := s.memoized(tr.Key(), func() (*mat.CDense, error) {
		p, err := s.trigExpOperator(dynCoeffs)
		if err != nil {
			return nil, err
		}
		u := linalg.Scale(cmplx.Exp(complex(0, tr.Arg.Const)), p)
		switch tr.Fn {
		case symbolic.Cos:
			return linalg.Scale(0.5, linalg.Add(u, linalg.Dagger(u))), nil
		case symbolic.Sin:
			return linalg.Scale(complex(0, -0.5), linalg.Add(u, linalg.Scale(-1, linalg.Dagger(u)))), nil
		}
		return nil, configErrorf("unknown trig function %v", tr.Fn)
	})
	if err != nil {
		return 0, nil, err
	}
	return 1, op, nil
}

// trigExpOperator builds Π_j exp(i·a_j·θ_j) in this subsystem's
// representation space. Factors belonging to a common child are multiplied in
// the child's full space before the truncated rotation, since rotation does
// not commute with the product.
func (s *Subsystem) trigExpOperator(coeffs map[int]float64) (*mat.CDense, error) {
	if s.hierarchical {
		result := linalg.Identity(s.repDim())
		remaining := len(coeffs)
		for i, child := range s.children {
			subCoeffs := make(map[int]float64)
			for idx, a := range coeffs {
				if contains(child.varIndices, idx) {
					subCoeffs[idx] = a
				}
			}
			if len(subCoeffs) == 0 {
				continue
			}
			inner, err := child.trigExpOperator(subCoeffs)
			if err != nil {
				return nil, err
			}
			wrapped, err := s.wrapChildOperator(i, inner)
			if err != nil {
				return nil, err
			}
			result = linalg.Mul(result, wrapped)
			remaining -= len(subCoeffs)
		}
		if remaining != 0 {
			return nil, configErrorf("trig argument references variables outside this subsystem")
		}
		return result, nil
	}

	if s.isPurelyHarmonic {
		dims := s.modeDims()
		total := 1
		for _, d := range dims {
			total *= d
		}
		theta := mat.NewCDense(total, total, nil)
		for idx, a := range coeffs {
			op, err := s.modeVarOperator(symbolic.KindFluxCoordinate, idx)
			if err != nil {
				return nil, err
			}
			theta = linalg.Add(theta, linalg.Scale(complex(a, 0), op))
		}
		exp, err := linalg.ExpIHermitian(theta, 1)
		return exp, asNumericalError(err)
	}

	result := linalg.Identity(s.repDim())
	indices := make([]int, 0, len(coeffs))
	for idx := range coeffs {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		local, err := s.localExpITheta(idx, coeffs[idx])
		if err != nil {
			return nil, err
		}
		full, err := s.kronOperator(local, idx)
		if err != nil {
			return nil, err
		}
		result = linalg.Mul(result, full)
	}
	return result, nil
}

// localExpITheta builds exp(i·a·θ_idx) in the variable's own basis. On a
// compact variable the coefficient must be an integer, since e^{iaθ} is only
// periodic for integer a.
func (s *Subsystem) localExpITheta(idx int, a float64) (*mat.CDense, error) {
	if s.isPeriodic(idx) {
		k := int(math.Round(a))
		if math.Abs(a-float64(k)) > 1e-9 {
			return nil, configErrorf("non-integer coefficient %g on compact variable θ%d", a, idx)
		}
		ncut := s.cutoffValue(idx)
		switch {
		case k == 0:
			return operators.IdentityTheta(ncut), nil
		case k > 0:
			return linalg.MatPow(operators.ExpITheta(ncut), k), nil
		default:
			return linalg.MatPow(operators.ExpIThetaConj(ncut), -k), nil
		}
	}

	switch s.extBasis {
	case BasisDiscretized:
		grid, err := s.grid(idx)
		if err != nil {
			return nil, err
		}
		return operators.ExpIAPhi(grid, a), nil
	case BasisHarmonic:
		length, err := s.oscLength(idx)
		if err != nil {
			return nil, err
		}
		theta := operators.PositionOsc(s.cutoffValue(idx), length)
		exp, err := linalg.ExpIHermitian(theta, a)
		return exp, asNumericalError(err)
	}
	return nil, configErrorf("no exponential operator for variable %d", idx)
}

// memoized caches composed operators per canonical placeholder key for the
// lifetime of the current numeric build.
func (s *Subsystem) memoized(key string, build func() (*mat.CDense, error)) (*mat.CDense, error) {
	if op, ok := s.opMemo[key]; ok {
		return op, nil
	}
	op, err := build()
	if err != nil {
		return nil, err
	}
	if s.opMemo == nil {
		s.opMemo = make(map[string]*mat.CDense)
	}
	s.opMemo[key] = op
	return op, nil
}

// eigensys computes (or serves from cache) the lowest `count` eigenvalues and
// eigenvectors.
func (s *Subsystem) eigensys(count int) (*linalg.EigenResult, error) {
	if err := s.ensureUsable(); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultEvalsCount
	}
	if s.eigenCache != nil && len(s.eigenCache.Values) >= count {
		n, _ := s.eigenCache.Vectors.Dims()
		return &linalg.EigenResult{
			Values:  s.eigenCache.Values[:count],
			Vectors: s.eigenCache.Vectors.Slice(0, n, 0, count).(*mat.CDense),
		}, nil
	}

	var res *linalg.EigenResult
	if s.isPurelyHarmonic && !s.hierarchical {
		r, err := s.eigensysDiagonal(count)
		if err != nil {
			return nil, err
		}
		res = r
	} else {
		h, err := s.Hamiltonian()
		if err != nil {
			return nil, err
		}
		r, err := linalg.Eigh(h, count)
		if err != nil {
			return nil, asNumericalError(err)
		}
		res = &r
	}
	s.eigenCache = res
	return res, nil
}

// defaultEvalsCount is used when a caller passes a non-positive count.
const defaultEvalsCount = 6

// Eigenvalues returns the lowest `count` eigenvalues in ascending order.
func (s *Subsystem) Eigenvalues(count int) ([]float64, error) {
	res, err := s.eigensys(count)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), res.Values...), nil
}

// Eigensys returns the lowest `count` eigenvalues with their eigenvectors as
// matrix columns.
func (s *Subsystem) Eigensys(count int) ([]float64, *mat.CDense, error) {
	res, err := s.eigensys(count)
	if err != nil {
		return nil, nil, err
	}
	return append([]float64(nil), res.Values...), linalg.Copy(res.Vectors), nil
}

// Operator resolves an operator by name in this subsystem's representation
// space: "n1", "Q2", "θ1" for bare variables, "cosθ1"/"sinθ1" for trig
// operators of a single flux coordinate.
func (s *Subsystem) Operator(name string) (*mat.CDense, error) {
	if err := s.ensureUsable(); err != nil {
		return nil, err
	}
	if fn, rest, ok := splitTrigName(name); ok {
		kind, _, known := symbolic.ClassifySymbol(rest)
		if !known || kind != symbolic.KindFluxCoordinate {
			return nil, configErrorf("trig operator %q needs a flux coordinate argument", name)
		}
		sc, op, err := s.trigFactor(symbolic.Trig{
			Fn:  fn,
			Arg: symbolic.NewLinear(map[string]float64{rest: 1}, 0),
		})
		if err != nil {
			return nil, err
		}
		if op == nil {
			return linalg.Scale(sc, linalg.Identity(s.repDim())), nil
		}
		return op, nil
	}

	kind, idx, ok := symbolic.ClassifySymbol(name)
	if !ok || !kind.IsDynamical() {
		return nil, configErrorf("unknown operator %q", name)
	}
	return s.memoized(fmt.Sprintf("%s^%d", name, 1), func() (*mat.CDense, error) {
		return s.varOperatorFull(kind, idx, 1)
	})
}

// OperatorNames lists the operator names available on this subsystem.
func (s *Subsystem) OperatorNames() []string {
	names := make([]string, 0, 4*len(s.varIndices))
	for _, idx := range s.categories.Periodic {
		names = append(names, fmt.Sprintf("n%d", idx), fmt.Sprintf("cosθ%d", idx), fmt.Sprintf("sinθ%d", idx))
	}
	for _, idx := range s.categories.Extended {
		names = append(names, fmt.Sprintf("Q%d", idx), fmt.Sprintf("θ%d", idx),
			fmt.Sprintf("cosθ%d", idx), fmt.Sprintf("sinθ%d", idx))
	}
	sort.Strings(names)
	return names
}

func splitTrigName(name string) (symbolic.TrigFn, string, bool) {
	switch {
	case strings.HasPrefix(name, "cos"):
		return symbolic.Cos, strings.TrimPrefix(name, "cos"), true
	case strings.HasPrefix(name, "sin"):
		return symbolic.Sin, strings.TrimPrefix(name, "sin"), true
	}
	return 0, "", false
}

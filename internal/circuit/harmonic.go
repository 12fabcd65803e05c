package circuit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/Roshan-Thomas/scqubits/internal/linalg"
	"github.com/Roshan-Thomas/scqubits/internal/operators"
	"github.com/Roshan-Thomas/scqubits/internal/symbolic"
)

// diagonalizePurelyHarmonic solves a quadratic Hamiltonian
// H = q'Aq + θ'Bθ + c analytically. With S = B^{1/2} and
// S·A·S = U·Λ·U', the normal mode frequencies are ω_i = 2√λ_i and the
// transformation θ = S⁻¹·U·ξ, q = S·U·p decouples the modes into
// H = Σ_i (λ_i p_i² + ξ_i²) + c. The results are cached on the subsystem;
// a non-separable or singular form returns an error and the caller falls
// back to standard diagonalization.
func (s *Subsystem) diagonalizePurelyHarmonic(substituted symbolic.Expr) error {
	m := len(s.varIndices)
	if m == 0 {
		return configErrorf("purely harmonic form has no quantized variables")
	}
	a, b, offset, err := s.extractQuadraticForms(substituted)
	if err != nil {
		return err
	}

	sqrtB, err := linalg.SymSqrt(b, m)
	if err != nil {
		return configErrorf("flux quadratic form: %v", err)
	}
	var invSqrtB mat.Dense
	if err := invSqrtB.Inverse(sqrtB); err != nil {
		return configErrorf("flux quadratic form is singular: %v", err)
	}

	var sas, tmp mat.Dense
	tmp.Mul(sqrtB, mat.NewDense(m, m, a))
	sas.Mul(&tmp, sqrtB)
	sasSym := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			sasSym[i*m+j] = 0.5 * (sas.At(i, j) + sas.At(j, i))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(m, sasSym), true); !ok {
		return configErrorf("normal mode factorization failed")
	}
	lambdas := make([]float64, m)
	eig.Values(lambdas)
	var u mat.Dense
	eig.VectorsTo(&u)

	freqs := make([]float64, m)
	lengths := make([]float64, m)
	for i, l := range lambdas {
		if l <= 0 {
			return configErrorf("normal mode %d has non-positive eigenvalue %g", i, l)
		}
		freqs[i] = 2 * math.Sqrt(l)
		lengths[i] = math.Pow(l, 0.25)
	}

	var toVar, toCharge mat.Dense
	toVar.Mul(&invSqrtB, &u)
	toCharge.Mul(sqrtB, &u)

	s.normalModeFreqs = freqs
	s.modeLengths = lengths
	s.modeToVar = &toVar
	s.modeToCharge = &toCharge
	s.constOffset = offset
	s.modeStale = false
	return nil
}

// ensureModeData recomputes the normal mode decomposition after a parameter
// write invalidated it.
func (s *Subsystem) ensureModeData() error {
	if !s.isPurelyHarmonic || !s.modeStale {
		return nil
	}
	return s.diagonalizePurelyHarmonic(s.substitutedHamiltonian())
}

// extractQuadraticForms reads the charge form A, the flux form B and the
// scalar offset out of a fully substituted expression. Mixed charge/flux
// terms, linear terms and leftover trig factors make the form non-separable.
func (s *Subsystem) extractQuadraticForms(substituted symbolic.Expr) (a, b []float64, offset float64, err error) {
	m := len(s.varIndices)
	pos := make(map[int]int, m)
	for i, idx := range s.varIndices {
		pos[idx] = i
	}
	a = make([]float64, m*m)
	b = make([]float64, m*m)

	for _, t := range substituted.Terms {
		if len(t.Trigs) > 0 {
			return nil, nil, 0, configErrorf("trig factor survives substitution in %s", t.String())
		}
		type factor struct {
			kind symbolic.SymbolKind
			slot int
			pow  int
		}
		factors := make([]factor, 0, 2)
		for name, pow := range t.Pows {
			if pow == 0 {
				continue
			}
			kind, idx, ok := symbolic.ClassifySymbol(name)
			if !ok || !kind.IsDynamical() {
				return nil, nil, 0, configErrorf("unresolved symbol %q in quadratic form", name)
			}
			slot, known := pos[idx]
			if !known {
				return nil, nil, 0, configErrorf("symbol %q references unknown variable %d", name, idx)
			}
			factors = append(factors, factor{kind: kind, slot: slot, pow: pow})
		}

		switch len(factors) {
		case 0:
			offset += t.Coeff
		case 1:
			f := factors[0]
			if f.pow != 2 {
				return nil, nil, 0, configErrorf("non-quadratic power %d in harmonic form", f.pow)
			}
			if f.kind == symbolic.KindFluxCoordinate {
				b[f.slot*m+f.slot] += t.Coeff
			} else {
				a[f.slot*m+f.slot] += t.Coeff
			}
		case 2:
			f, g := factors[0], factors[1]
			if f.pow != 1 || g.pow != 1 {
				return nil, nil, 0, configErrorf("non-quadratic cross term in harmonic form")
			}
			fFlux := f.kind == symbolic.KindFluxCoordinate
			gFlux := g.kind == symbolic.KindFluxCoordinate
			if fFlux != gFlux {
				return nil, nil, 0, configErrorf("charge/flux cross coupling is not separable")
			}
			target := a
			if fFlux {
				target = b
			}
			target[f.slot*m+g.slot] += 0.5 * t.Coeff
			target[g.slot*m+f.slot] += 0.5 * t.Coeff
		default:
			return nil, nil, 0, configErrorf("term couples more than two variables in harmonic form")
		}
	}
	return a, b, offset, nil
}

// modeDims returns the per-mode truncation dimensions for the fast path.
// Mode i inherits the cutoff of the i-th quantized variable in ascending
// index order.
func (s *Subsystem) modeDims() []int {
	dims := make([]int, len(s.varIndices))
	for i, idx := range s.varIndices {
		dims[i] = s.cutoffValue(idx)
	}
	return dims
}

// buildHarmonicDiagonal composes the diagonal normal-mode Hamiltonian
// Σ_i ω_i(N_i + ½) + c on the mode product space.
func (s *Subsystem) buildHarmonicDiagonal() (*mat.CDense, error) {
	if err := s.ensureModeData(); err != nil {
		return nil, err
	}
	dims := s.modeDims()
	total := 1
	for _, d := range dims {
		total *= d
	}
	h := linalg.Scale(complex(s.constOffset, 0), linalg.Identity(total))
	for i, omega := range s.normalModeFreqs {
		local := linalg.Add(
			operators.NumberOsc(dims[i]),
			linalg.Scale(0.5, operators.IdentityOsc(dims[i])),
		)
		h = linalg.Add(h, linalg.Scale(complex(omega, 0), s.wrapMode(local, i, dims)))
	}
	return h, nil
}

// eigensysDiagonal reads the spectrum straight off the diagonal normal-mode
// Hamiltonian: eigenvalues are the sorted diagonal entries and eigenvectors
// are the matching unit basis vectors.
func (s *Subsystem) eigensysDiagonal(count int) (*linalg.EigenResult, error) {
	h, err := s.Hamiltonian()
	if err != nil {
		return nil, err
	}
	n, _ := h.Dims()
	if count <= 0 || count > n {
		count = n
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return real(h.At(order[i], order[i])) < real(h.At(order[j], order[j]))
	})

	res := &linalg.EigenResult{
		Values:  make([]float64, count),
		Vectors: mat.NewCDense(n, count, nil),
	}
	for j := 0; j < count; j++ {
		res.Values[j] = real(h.At(order[j], order[j]))
		res.Vectors.Set(order[j], j, 1)
	}
	return res, nil
}

// wrapMode embeds a single-mode operator into the mode product space.
func (s *Subsystem) wrapMode(op *mat.CDense, mode int, dims []int) *mat.CDense {
	mats := make([]*mat.CDense, len(dims))
	for i, d := range dims {
		if i == mode {
			mats[i] = op
		} else {
			mats[i] = linalg.Identity(d)
		}
	}
	return linalg.KronAll(mats...)
}

// modeVarOperator expresses a flux coordinate or charge of the original
// variable set as the corresponding linear combination of normal-mode
// position or momentum operators, in the mode product space.
func (s *Subsystem) modeVarOperator(kind symbolic.SymbolKind, idx int) (*mat.CDense, error) {
	if err := s.ensureModeData(); err != nil {
		return nil, err
	}
	slot := -1
	for i, v := range s.varIndices {
		if v == idx {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, configErrorf("variable %d not quantized in this subsystem", idx)
	}
	dims := s.modeDims()
	total := 1
	for _, d := range dims {
		total *= d
	}

	out := mat.NewCDense(total, total, nil)
	for mode := range dims {
		var weight float64
		var local *mat.CDense
		switch kind {
		case symbolic.KindFluxCoordinate:
			weight = s.modeToVar.At(slot, mode)
			local = operators.PositionOsc(dims[mode], s.modeLengths[mode])
		case symbolic.KindExtendedCharge, symbolic.KindPeriodicCharge:
			weight = s.modeToCharge.At(slot, mode)
			local = operators.MomentumOsc(dims[mode], s.modeLengths[mode])
		default:
			return nil, configErrorf("symbol kind %d has no mode operator", kind)
		}
		if weight == 0 {
			continue
		}
		out = linalg.Add(out, linalg.Scale(complex(weight, 0), s.wrapMode(local, mode, dims)))
	}
	return out, nil
}

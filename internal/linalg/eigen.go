package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// realThreshold decides when a Hermitian matrix is treated as purely real and
// solved directly with the dense symmetric solver instead of the complex
// embedding.
const realThreshold = 1e-13

// SolveError reports a diagonalization failure with enough context to debug
// it: matrix size, requested eigenvalue count and the strategies attempted.
type SolveError struct {
	Dim        int
	Requested  int
	Strategies []string
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("eigensolver failed on %d×%d matrix (requested %d eigenvalues, strategies %v)",
		e.Dim, e.Dim, e.Requested, e.Strategies)
}

// EigenResult holds ascending eigenvalues and, column-wise, the matching
// eigenvectors.
type EigenResult struct {
	Values  []float64
	Vectors *mat.CDense
}

// Eigh diagonalizes a Hermitian matrix, returning the `count` lowest
// eigenvalues in ascending order with their eigenvectors. A real matrix is
// handed to gonum's symmetric solver; a genuinely complex one is embedded
// into a real symmetric matrix of twice the size. A failed factorization is
// retried once on the re-symmetrized matrix (H+H^dag)/2 before giving up.
func Eigh(h *mat.CDense, count int) (EigenResult, error) {
	r, c := h.Dims()
	if r != c {
		return EigenResult{}, fmt.Errorf("eigh: matrix is %d×%d, not square", r, c)
	}
	if count <= 0 || count > r {
		count = r
	}

	strategies := []string{"dense-hermitian"}
	res, ok := eighOnce(h, count)
	if ok {
		return res, nil
	}

	// retry on the symmetrized matrix
	strategies = append(strategies, "resymmetrized")
	sym := Scale(0.5, Add(h, Dagger(h)))
	res, ok = eighOnce(sym, count)
	if ok {
		return res, nil
	}
	return EigenResult{}, &SolveError{Dim: r, Requested: count, Strategies: strategies}
}

func eighOnce(h *mat.CDense, count int) (EigenResult, bool) {
	if MaxImag(h) <= realThreshold {
		return eighReal(h, count)
	}
	return eighComplex(h, count)
}

func eighReal(h *mat.CDense, count int) (EigenResult, bool) {
	n, _ := h.Dims()
	symData := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			symData[i*n+j] = 0.5 * (real(h.At(i, j)) + real(h.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(n, symData), true); !ok {
		return EigenResult{}, false
	}
	values := make([]float64, n)
	eig.Values(values)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	out := EigenResult{
		Values:  values[:count],
		Vectors: mat.NewCDense(n, count, nil),
	}
	for j := 0; j < count; j++ {
		for i := 0; i < n; i++ {
			out.Vectors.Set(i, j, complex(vecs.At(i, j), 0))
		}
	}
	return out, true
}

// eighComplex solves H = A + iB via the real symmetric embedding
// [[A, -B], [B, A]]: every eigenvalue of H appears twice, with embedded
// eigenvectors (x; y) and (-y; x) both mapping to v = x + iy up to phase.
// The doubled spectrum is collapsed by orthogonalizing candidates within
// degenerate groups.
func eighComplex(h *mat.CDense, count int) (EigenResult, bool) {
	n, _ := h.Dims()
	full := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := real(h.At(i, j))
			b := imag(h.At(i, j))
			full.Set(i, j, a)
			full.Set(i+n, j+n, a)
			full.Set(i, j+n, -b)
			full.Set(i+n, j, b)
		}
	}
	symData := make([]float64, 4*n*n)
	for i := 0; i < 2*n; i++ {
		for j := 0; j < 2*n; j++ {
			symData[i*2*n+j] = 0.5 * (full.At(i, j) + full.At(j, i))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(2*n, symData), true); !ok {
		return EigenResult{}, false
	}
	values := make([]float64, 2*n)
	eig.Values(values)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	type pair struct {
		value float64
		vec   []complex128
	}
	accepted := make([]pair, 0, count)
	for k := 0; k < 2*n && len(accepted) < count; k++ {
		cand := make([]complex128, n)
		for i := 0; i < n; i++ {
			cand[i] = complex(vecs.At(i, k), vecs.At(i+n, k))
		}
		// remove overlap with already accepted vectors of the same eigenvalue
		for _, acc := range accepted {
			if math.Abs(acc.value-values[k]) > 1e-8*(1+math.Abs(values[k])) {
				continue
			}
			overlap := complex(0, 0)
			for i := 0; i < n; i++ {
				overlap += cmplx.Conj(acc.vec[i]) * cand[i]
			}
			for i := 0; i < n; i++ {
				cand[i] -= overlap * acc.vec[i]
			}
		}
		norm := 0.0
		for i := 0; i < n; i++ {
			norm += real(cand[i] * cmplx.Conj(cand[i]))
		}
		norm = math.Sqrt(norm)
		if norm < 1e-8 {
			continue // phase copy of an accepted vector
		}
		for i := 0; i < n; i++ {
			cand[i] /= complex(norm, 0)
		}
		accepted = append(accepted, pair{value: values[k], vec: cand})
	}
	if len(accepted) < count {
		return EigenResult{}, false
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].value < accepted[j].value })

	out := EigenResult{
		Values:  make([]float64, count),
		Vectors: mat.NewCDense(n, count, nil),
	}
	for j := 0; j < count; j++ {
		out.Values[j] = accepted[j].value
		for i := 0; i < n; i++ {
			out.Vectors.Set(i, j, accepted[j].vec[i])
		}
	}
	return out, true
}

// ExpIHermitian returns exp(i·scale·H) for Hermitian H via spectral
// decomposition.
func ExpIHermitian(h *mat.CDense, scale float64) (*mat.CDense, error) {
	n, _ := h.Dims()
	res, err := Eigh(h, n)
	if err != nil {
		return nil, err
	}
	expDiag := make([]complex128, n)
	for i, v := range res.Values {
		expDiag[i] = cmplx.Exp(complex(0, scale*v))
	}
	return Mul(Mul(res.Vectors, Diag(expDiag)), Dagger(res.Vectors)), nil
}

// SymSqrt returns the symmetric square root of a positive semi-definite
// matrix given as a flat row-major n×n slice.
func SymSqrt(data []float64, n int) (*mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(n, data), true); !ok {
		return nil, fmt.Errorf("symsqrt: factorization failed on %d×%d matrix", n, n)
	}
	values := make([]float64, n)
	eig.Values(values)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	sqrtDiag := mat.NewDense(n, n, nil)
	for i, v := range values {
		if v < -1e-12 {
			return nil, fmt.Errorf("symsqrt: matrix is not positive semi-definite (eigenvalue %g)", v)
		}
		if v < 0 {
			v = 0
		}
		sqrtDiag.Set(i, i, math.Sqrt(v))
	}
	var tmp, out mat.Dense
	tmp.Mul(&vecs, sqrtDiag)
	out.Mul(&tmp, vecs.T())
	return &out, nil
}

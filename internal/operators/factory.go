// Package operators builds the elementary single-variable matrices for the
// three local bases: charge (periodic variables), discretized flux (extended
// variables) and harmonic oscillator. Every function is pure and
// deterministic given the basis size.
package operators

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/Roshan-Thomas/scqubits/internal/discretization"
	"github.com/Roshan-Thomas/scqubits/internal/linalg"
)

// --- charge basis (periodic variable, cutoff n, dimension 2n+1) ---

// IdentityTheta returns the identity in the charge basis.
func IdentityTheta(ncut int) *mat.CDense {
	return linalg.Identity(2*ncut + 1)
}

// NTheta returns the charge operator, diagonal with integers -n..n.
func NTheta(ncut int) *mat.CDense {
	dim := 2*ncut + 1
	entries := make([]float64, dim)
	for i := 0; i < dim; i++ {
		entries[i] = float64(i - ncut)
	}
	return linalg.DiagReal(entries)
}

// ExpITheta returns the raising trig generator E₊, a single off-diagonal of
// ones at offset +1.
func ExpITheta(ncut int) *mat.CDense {
	dim := 2*ncut + 1
	m := mat.NewCDense(dim, dim, nil)
	for i := 0; i+1 < dim; i++ {
		m.Set(i, i+1, 1)
	}
	return m
}

// ExpIThetaConj returns the lowering generator E₋ = E₊^dag.
func ExpIThetaConj(ncut int) *mat.CDense {
	return linalg.Dagger(ExpITheta(ncut))
}

// CosTheta returns cos θ = ½(E₊ + E₋) in the charge basis.
func CosTheta(ncut int) *mat.CDense {
	return linalg.Scale(0.5, linalg.Add(ExpITheta(ncut), ExpIThetaConj(ncut)))
}

// SinTheta returns sin θ = -i/2 (E₊ - E₋) in the charge basis.
func SinTheta(ncut int) *mat.CDense {
	diff := linalg.Add(ExpITheta(ncut), linalg.Scale(-1, ExpIThetaConj(ncut)))
	return linalg.Scale(complex(0, -0.5), diff)
}

// --- discretized flux basis (extended variable on an N-point grid) ---

// IdentityPhi returns the identity on the grid.
func IdentityPhi(grid discretization.Grid1D) *mat.CDense {
	return grid.Identity()
}

// Phi returns the flux operator, diagonal with the grid coordinates.
func Phi(grid discretization.Grid1D) *mat.CDense {
	return linalg.DiagReal(grid.Linspace())
}

// QPhi returns the conjugate charge operator -i d/dφ on the grid.
func QPhi(grid discretization.Grid1D) *mat.CDense {
	return grid.FirstDerivative(complex(0, -1))
}

// QPhiSquared returns -d²/dφ², the square of the conjugate charge operator.
func QPhiSquared(grid discretization.Grid1D) *mat.CDense {
	return grid.SecondDerivative(-1)
}

// CosPhi applies cos elementwise to the diagonal flux operator.
func CosPhi(grid discretization.Grid1D) *mat.CDense {
	return diagFunc(grid, math.Cos)
}

// SinPhi applies sin elementwise to the diagonal flux operator.
func SinPhi(grid discretization.Grid1D) *mat.CDense {
	return diagFunc(grid, math.Sin)
}

// ExpIAPhi returns exp(i·a·φ) as an elementwise diagonal, for any real a.
func ExpIAPhi(grid discretization.Grid1D, a float64) *mat.CDense {
	pts := grid.Linspace()
	entries := make([]complex128, len(pts))
	for i, x := range pts {
		entries[i] = cmplx.Exp(complex(0, a*x))
	}
	return linalg.Diag(entries)
}

func diagFunc(grid discretization.Grid1D, fn func(float64) float64) *mat.CDense {
	pts := grid.Linspace()
	entries := make([]float64, len(pts))
	for i, x := range pts {
		entries[i] = fn(x)
	}
	return linalg.DiagReal(entries)
}

// --- harmonic oscillator basis (dimension d) ---

// IdentityOsc returns the identity in the oscillator basis.
func IdentityOsc(dim int) *mat.CDense {
	return linalg.Identity(dim)
}

// Annihilation returns the lowering operator with √n on the super-diagonal.
func Annihilation(dim int) *mat.CDense {
	m := mat.NewCDense(dim, dim, nil)
	for n := 1; n < dim; n++ {
		m.Set(n-1, n, complex(math.Sqrt(float64(n)), 0))
	}
	return m
}

// Creation returns the raising operator, the conjugate transpose of
// Annihilation.
func Creation(dim int) *mat.CDense {
	return linalg.Dagger(Annihilation(dim))
}

// PositionOsc returns the flux coordinate l/√2 (a + a†) for oscillator
// length l.
func PositionOsc(dim int, oscLength float64) *mat.CDense {
	sum := linalg.Add(Annihilation(dim), Creation(dim))
	return linalg.Scale(complex(oscLength/math.Sqrt2, 0), sum)
}

// MomentumOsc returns the conjugate charge i/(√2 l) (a† - a).
func MomentumOsc(dim int, oscLength float64) *mat.CDense {
	diff := linalg.Add(Creation(dim), linalg.Scale(-1, Annihilation(dim)))
	return linalg.Scale(complex(0, 1/(math.Sqrt2*oscLength)), diff)
}

// NumberOsc returns a†a.
func NumberOsc(dim int) *mat.CDense {
	entries := make([]float64, dim)
	for n := 0; n < dim; n++ {
		entries[n] = float64(n)
	}
	return linalg.DiagReal(entries)
}

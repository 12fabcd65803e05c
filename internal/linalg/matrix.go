// Package linalg wraps gonum's dense matrices with the complex helpers the
// quantization engine needs: Kronecker products, Hermitian checks and a
// Hermitian eigensolver with a fallback strategy.
package linalg

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Identity returns the n×n identity.
func Identity(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Diag returns a diagonal matrix with the given entries.
func Diag(entries []complex128) *mat.CDense {
	n := len(entries)
	m := mat.NewCDense(n, n, nil)
	for i, v := range entries {
		m.Set(i, i, v)
	}
	return m
}

// DiagReal returns a diagonal matrix with real entries.
func DiagReal(entries []float64) *mat.CDense {
	n := len(entries)
	m := mat.NewCDense(n, n, nil)
	for i, v := range entries {
		m.Set(i, i, complex(v, 0))
	}
	return m
}

// Kron returns the Kronecker product a ⊗ b.
func Kron(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			av := a.At(i, j)
			if av == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					bv := b.At(k, l)
					if bv != 0 {
						out.Set(i*br+k, j*bc+l, av*bv)
					}
				}
			}
		}
	}
	return out
}

// KronAll folds Kron over the given matrices left to right.
func KronAll(ms ...*mat.CDense) *mat.CDense {
	if len(ms) == 0 {
		return Identity(1)
	}
	out := ms[0]
	for _, m := range ms[1:] {
		out = Kron(out, m)
	}
	return out
}

// Add returns a + b.
func Add(a, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

// Scale returns s * a.
func Scale(s complex128, a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, s*a.At(i, j))
		}
	}
	return out
}

// Mul returns the matrix product a·b.
func Mul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic("linalg: dimension mismatch in Mul")
	}
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for k := 0; k < ac; k++ {
			av := a.At(i, k)
			if av == 0 {
				continue
			}
			for j := 0; j < bc; j++ {
				out.Set(i, j, out.At(i, j)+av*b.At(k, j))
			}
		}
	}
	return out
}

// MatPow returns a^n by repeated multiplication; a^0 is the identity.
func MatPow(a *mat.CDense, n int) *mat.CDense {
	if n <= 0 {
		r, _ := a.Dims()
		return Identity(r)
	}
	out := a
	for i := 1; i < n; i++ {
		out = Mul(out, a)
	}
	return out
}

// Dagger returns the conjugate transpose.
func Dagger(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(a.At(i, j)))
		}
	}
	return out
}

// Copy returns a deep copy.
func Copy(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	out.Copy(a)
	return out
}

// HermitianDefect returns the largest entry magnitude of a - a^dag.
func HermitianDefect(a *mat.CDense) float64 {
	r, c := a.Dims()
	if r != c {
		return math.Inf(1)
	}
	defect := 0.0
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			d := cmplx.Abs(a.At(i, j) - cmplx.Conj(a.At(j, i)))
			if d > defect {
				defect = d
			}
		}
	}
	return defect
}

// IsHermitian reports whether a is Hermitian within tol.
func IsHermitian(a *mat.CDense, tol float64) bool {
	return HermitianDefect(a) <= tol
}

// MaxImag returns the largest imaginary-part magnitude of any entry.
func MaxImag(a *mat.CDense) float64 {
	r, c := a.Dims()
	out := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := math.Abs(imag(a.At(i, j))); v > out {
				out = v
			}
		}
	}
	return out
}

// MaxAbsDiff returns the largest entry magnitude of a - b.
func MaxAbsDiff(a, b *mat.CDense) float64 {
	r, c := a.Dims()
	out := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := cmplx.Abs(a.At(i, j) - b.At(i, j)); v > out {
				out = v
			}
		}
	}
	return out
}

// RealPart extracts the real part into a dense real matrix.
func RealPart(a *mat.CDense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, real(a.At(i, j)))
		}
	}
	return out
}

// FromReal lifts a real matrix into a complex one.
func FromReal(a mat.Matrix) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, complex(a.At(i, j), 0))
		}
	}
	return out
}

package operators

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/Roshan-Thomas/scqubits/internal/discretization"
	"github.com/Roshan-Thomas/scqubits/internal/linalg"
)

func TestNTheta(t *testing.T) {
	n := NTheta(2)
	r, c := n.Dims()
	if r != 5 || c != 5 {
		t.Fatalf("NTheta(2) is %d×%d, want 5×5", r, c)
	}
	for i, want := range []float64{-2, -1, 0, 1, 2} {
		if got := real(n.At(i, i)); got != want {
			t.Errorf("NTheta(2)[%d][%d] = %g, want %g", i, i, got, want)
		}
	}
}

func TestExpIThetaShiftsChargeStates(t *testing.T) {
	e := ExpITheta(1)
	// acting on |n⟩ column vectors, E₊ maps charge n+1 to n
	if e.At(0, 1) != 1 || e.At(1, 2) != 1 {
		t.Error("E₊ should carry ones on the +1 off-diagonal")
	}
	if e.At(1, 0) != 0 {
		t.Error("E₊ must be strictly upper")
	}
	dag := ExpIThetaConj(1)
	if dag.At(1, 0) != 1 {
		t.Error("E₋ should be the conjugate transpose of E₊")
	}
}

func TestCosSinThetaHermitian(t *testing.T) {
	if !linalg.IsHermitian(CosTheta(3), 1e-14) {
		t.Error("cos θ must be Hermitian")
	}
	if !linalg.IsHermitian(SinTheta(3), 1e-14) {
		t.Error("sin θ must be Hermitian")
	}
}

func TestLadderCommutator(t *testing.T) {
	dim := 8
	a := Annihilation(dim)
	ad := Creation(dim)
	comm := linalg.Add(linalg.Mul(a, ad), linalg.Scale(-1, linalg.Mul(ad, a)))
	// [a, a†] = 1 except on the truncated top level
	for i := 0; i < dim-1; i++ {
		if math.Abs(real(comm.At(i, i))-1) > 1e-14 {
			t.Errorf("[a,a†][%d][%d] = %v, want 1", i, i, comm.At(i, i))
		}
	}
}

func TestPositionMomentumCommutator(t *testing.T) {
	dim := 10
	length := 1.3
	x := PositionOsc(dim, length)
	p := MomentumOsc(dim, length)
	comm := linalg.Add(linalg.Mul(x, p), linalg.Scale(-1, linalg.Mul(p, x)))
	// [θ, Q] = i away from the truncation boundary
	for i := 0; i < dim-1; i++ {
		if cmplx.Abs(comm.At(i, i)-complex(0, 1)) > 1e-12 {
			t.Errorf("[θ,Q][%d][%d] = %v, want i", i, i, comm.At(i, i))
		}
	}
}

func mustGrid(t *testing.T, min, max float64, points int) discretization.Grid1D {
	t.Helper()
	grid, err := discretization.NewGrid1D(min, max, points)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return grid
}

func TestGridOperators(t *testing.T) {
	grid := mustGrid(t, -math.Pi, math.Pi, 31)

	phi := Phi(grid)
	pts := grid.Linspace()
	if real(phi.At(0, 0)) != pts[0] || real(phi.At(30, 30)) != pts[30] {
		t.Error("Phi diagonal should match the grid coordinates")
	}

	if !linalg.IsHermitian(QPhi(grid), 1e-12) {
		t.Error("QPhi must be Hermitian")
	}
	if !linalg.IsHermitian(QPhiSquared(grid), 1e-12) {
		t.Error("QPhiSquared must be Hermitian")
	}

	// exp(i·a·φ) is diagonal unitary
	e := ExpIAPhi(grid, 0.7)
	for i := range pts {
		if math.Abs(cmplx.Abs(e.At(i, i))-1) > 1e-14 {
			t.Errorf("ExpIAPhi diagonal entry %d is not unit modulus", i)
		}
	}
}

func TestCosPhiMatchesPointwise(t *testing.T) {
	grid := mustGrid(t, -2, 2, 9)
	c := CosPhi(grid)
	for i, x := range grid.Linspace() {
		if math.Abs(real(c.At(i, i))-math.Cos(x)) > 1e-14 {
			t.Errorf("CosPhi[%d] = %g, want cos(%g)", i, real(c.At(i, i)), x)
		}
	}
}

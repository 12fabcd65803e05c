package discretization

import (
	"math"
	"testing"
)

func TestNewGrid1DValidation(t *testing.T) {
	tests := []struct {
		name    string
		min     float64
		max     float64
		points  int
		wantErr bool
	}{
		{name: "valid", min: -1, max: 1, points: 11, wantErr: false},
		{name: "too few points", min: -1, max: 1, points: 1, wantErr: true},
		{name: "empty range", min: 1, max: 1, points: 10, wantErr: true},
		{name: "inverted range", min: 2, max: -2, points: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid1D(tt.min, tt.max, tt.points)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGrid1D(%g, %g, %d) error = %v, wantErr %v",
					tt.min, tt.max, tt.points, err, tt.wantErr)
			}
		})
	}
}

func TestLinspaceEndpoints(t *testing.T) {
	g, err := NewGrid1D(-3, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	pts := g.Linspace()
	if len(pts) != 7 {
		t.Fatalf("expected 7 points, got %d", len(pts))
	}
	if pts[0] != -3 || pts[6] != 3 {
		t.Errorf("endpoints = %g, %g, want -3, 3", pts[0], pts[6])
	}
	if g.Spacing() != 1 {
		t.Errorf("spacing = %g, want 1", g.Spacing())
	}
}

// the central difference of x² has exact second derivative 2 away from the
// boundary rows
func TestSecondDerivativeOnParabola(t *testing.T) {
	g, err := NewGrid1D(-2, 2, 21)
	if err != nil {
		t.Fatal(err)
	}
	d2 := g.SecondDerivative(1)
	pts := g.Linspace()
	n := len(pts)

	for i := 1; i < n-1; i++ {
		var acc float64
		for j := 0; j < n; j++ {
			acc += real(d2.At(i, j)) * pts[j] * pts[j]
		}
		if math.Abs(acc-2) > 1e-10 {
			t.Errorf("(d²/dx² x²)[%d] = %g, want 2", i, acc)
		}
	}
}

func TestFirstDerivativeOnLine(t *testing.T) {
	g, err := NewGrid1D(0, 1, 11)
	if err != nil {
		t.Fatal(err)
	}
	d1 := g.FirstDerivative(1)
	pts := g.Linspace()
	n := len(pts)

	for i := 1; i < n-1; i++ {
		var acc complex128
		for j := 0; j < n; j++ {
			acc += d1.At(i, j) * complex(3*pts[j], 0)
		}
		if math.Abs(real(acc)-3) > 1e-10 || math.Abs(imag(acc)) > 1e-12 {
			t.Errorf("(d/dx 3x)[%d] = %v, want 3", i, acc)
		}
	}
}

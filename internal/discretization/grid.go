// Package discretization provides uniform 1-D grids and the finite-difference
// matrix generators used by the discretized flux basis.
package discretization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Grid1D is a uniform grid on [Min, Max] with PointCount points.
type Grid1D struct {
	Min        float64 `msgpack:"min"`
	Max        float64 `msgpack:"max"`
	PointCount int     `msgpack:"point_count"`
}

// NewGrid1D validates and constructs a grid.
func NewGrid1D(min, max float64, pointCount int) (Grid1D, error) {
	if pointCount < 2 {
		return Grid1D{}, fmt.Errorf("grid needs at least 2 points, got %d", pointCount)
	}
	if min >= max {
		return Grid1D{}, fmt.Errorf("grid range is empty: [%g, %g]", min, max)
	}
	return Grid1D{Min: min, Max: max, PointCount: pointCount}, nil
}

// Spacing returns the distance between neighboring grid points.
func (g Grid1D) Spacing() float64 {
	return (g.Max - g.Min) / float64(g.PointCount-1)
}

// Linspace returns the grid coordinates.
func (g Grid1D) Linspace() []float64 {
	pts := make([]float64, g.PointCount)
	h := g.Spacing()
	for i := range pts {
		pts[i] = g.Min + float64(i)*h
	}
	return pts
}

// Identity returns the identity matrix on the grid.
func (g Grid1D) Identity() *mat.CDense {
	m := mat.NewCDense(g.PointCount, g.PointCount, nil)
	for i := 0; i < g.PointCount; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// FirstDerivative returns prefactor * d/dx as a central-difference matrix.
func (g Grid1D) FirstDerivative(prefactor complex128) *mat.CDense {
	n := g.PointCount
	scale := prefactor / complex(2*g.Spacing(), 0)
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n-1; i++ {
		m.Set(i, i+1, scale)
		m.Set(i+1, i, -scale)
	}
	return m
}

// SecondDerivative returns prefactor * d²/dx² as a central-difference matrix.
func (g Grid1D) SecondDerivative(prefactor complex128) *mat.CDense {
	n := g.PointCount
	h := g.Spacing()
	scale := prefactor / complex(h*h, 0)
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, -2*scale)
		if i+1 < n {
			m.Set(i, i+1, scale)
			m.Set(i+1, i, scale)
		}
	}
	return m
}

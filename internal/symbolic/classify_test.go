package symbolic

import (
	"testing"
)

func TestClassifySymbol(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		wantKind SymbolKind
		wantIdx  int
		wantOK   bool
	}{
		{name: "periodic charge", symbol: "n1", wantKind: KindPeriodicCharge, wantIdx: 1, wantOK: true},
		{name: "extended charge", symbol: "Q2", wantKind: KindExtendedCharge, wantIdx: 2, wantOK: true},
		{name: "flux coordinate", symbol: "θ3", wantKind: KindFluxCoordinate, wantIdx: 3, wantOK: true},
		{name: "offset charge", symbol: "ng1", wantKind: KindOffsetCharge, wantIdx: 1, wantOK: true},
		{name: "external flux", symbol: "Φ12", wantKind: KindExternalFlux, wantIdx: 12, wantOK: true},
		{name: "parameter", symbol: "EJ", wantOK: false},
		{name: "malformed, no index", symbol: "n", wantOK: false},
		{name: "malformed, trailing garbage", symbol: "θ1x", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, idx, ok := ClassifySymbol(tt.symbol)
			if ok != tt.wantOK {
				t.Fatalf("ClassifySymbol(%q) ok = %v, want %v", tt.symbol, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if kind != tt.wantKind || idx != tt.wantIdx {
				t.Errorf("ClassifySymbol(%q) = (%v, %d), want (%v, %d)",
					tt.symbol, kind, idx, tt.wantKind, tt.wantIdx)
			}
		})
	}
}

// transmonExpr is 4·EC·(n1 − ng1)² − EJ·cos(θ1) with the square expanded.
func transmonExpr() Expr {
	return Expr{}.Add(
		NewTerm(4, map[string]int{"EC": 1, "n1": 2}),
		NewTerm(-8, map[string]int{"EC": 1, "ng1": 1, "n1": 1}),
		NewTerm(4, map[string]int{"EC": 1, "ng1": 2}),
		NewTrigTerm(-1, map[string]int{"EJ": 1}, Cos, NewLinear(map[string]float64{"θ1": 1}, 0)),
	)
}

// oscillatorExpr is 4·EC·Q1² + ½·EL·θ1².
func oscillatorExpr() Expr {
	return Expr{}.Add(
		NewTerm(4, map[string]int{"EC": 1, "Q1": 2}),
		NewTerm(0.5, map[string]int{"EL": 1, "θ1": 2}),
	)
}

func TestClassifyTransmon(t *testing.T) {
	fluxes, charges, cats := Classify(transmonExpr())
	if len(fluxes) != 0 {
		t.Errorf("expected no external fluxes, got %v", fluxes)
	}
	if len(charges) != 1 || charges[0] != "ng1" {
		t.Errorf("expected offset charge [ng1], got %v", charges)
	}
	if len(cats.Periodic) != 1 || cats.Periodic[0] != 1 {
		t.Errorf("expected periodic [1], got %v", cats.Periodic)
	}
	if len(cats.Extended) != 0 {
		t.Errorf("expected no extended variables, got %v", cats.Extended)
	}
}

func TestClassifyOscillator(t *testing.T) {
	_, _, cats := Classify(oscillatorExpr())
	if len(cats.Extended) != 1 || cats.Extended[0] != 1 {
		t.Errorf("expected extended [1], got %v", cats.Extended)
	}
	if len(cats.Periodic) != 0 {
		t.Errorf("expected no periodic variables, got %v", cats.Periodic)
	}
}

func TestIsPurelyHarmonic(t *testing.T) {
	params := map[string]float64{"EC": 1, "EL": 10, "EJ": 20, "ng1": 0}

	osc := oscillatorExpr().SubstituteParams(params)
	if !IsPurelyHarmonic(osc, 1e-11) {
		t.Error("LC oscillator should be purely harmonic")
	}

	transmon := transmonExpr().SubstituteParams(params)
	if IsPurelyHarmonic(transmon, 1e-11) {
		t.Error("a cos term is never harmonic")
	}

	// unresolved parameter symbols block the decision
	if IsPurelyHarmonic(oscillatorExpr(), 1e-11) {
		t.Error("unsubstituted parameters should not count as harmonic")
	}

	// quartic term with a coefficient below tolerance still counts
	nearQuartic := osc.Add(NewTerm(1e-13, map[string]int{"θ1": 4}))
	if !IsPurelyHarmonic(nearQuartic, 1e-11) {
		t.Error("sub-tolerance quartic coefficient should be ignored")
	}
	quartic := osc.Add(NewTerm(0.3, map[string]int{"θ1": 4}))
	if IsPurelyHarmonic(quartic, 1e-11) {
		t.Error("quartic term above tolerance is not harmonic")
	}
}

func TestSecondOrder(t *testing.T) {
	e := Expr{}.Add(
		NewTrigTerm(-2, nil, Cos, NewLinear(map[string]float64{"θ1": 1}, 0)),
	)
	expanded := e.SecondOrder()

	// cos(θ) → 1 − θ²/2, scaled by −2: constant −2 and θ² coefficient +1
	var constant, quad float64
	for _, term := range expanded.Terms {
		switch {
		case len(term.Pows) == 0 && len(term.Trigs) == 0:
			constant += term.Coeff
		case term.Pows["θ1"] == 2:
			quad += term.Coeff
		}
	}
	if constant != -2 {
		t.Errorf("constant part = %g, want -2", constant)
	}
	if quad != 1 {
		t.Errorf("θ1² coefficient = %g, want 1", quad)
	}
}

func TestPotentialAndKineticSplit(t *testing.T) {
	e := transmonExpr()
	pot := e.PotentialTerms()
	kin := e.KineticTerms()
	if len(pot.Terms) != 1 {
		t.Fatalf("expected 1 potential term, got %d", len(pot.Terms))
	}
	if len(pot.Terms[0].Trigs) != 1 {
		t.Error("potential term should carry the cos factor")
	}
	if len(kin.Terms) != 3 {
		t.Errorf("expected 3 kinetic terms, got %d", len(kin.Terms))
	}
}

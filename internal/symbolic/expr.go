// Package symbolic models circuit Hamiltonians as sums of terms over named
// symbols. A term is a real coefficient times a product of symbol powers and
// trigonometric factors whose arguments are linear combinations of symbols.
// The model is deliberately small: it covers exactly the expressions the
// quantization engine has to classify and evaluate numerically.
package symbolic

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// TrigFn selects the trigonometric function of a Trig factor.
type TrigFn int

const (
	Cos TrigFn = iota
	Sin
)

func (f TrigFn) String() string {
	if f == Sin {
		return "sin"
	}
	return "cos"
}

// Linear is a linear combination of symbols plus a constant, used as the
// argument of a trigonometric factor.
type Linear struct {
	Coeffs map[string]float64 `msgpack:"coeffs"`
	Const  float64            `msgpack:"const"`
}

// Trig is a cos/sin factor over a linear argument.
type Trig struct {
	Fn  TrigFn `msgpack:"fn"`
	Arg Linear `msgpack:"arg"`
}

// Term is coeff * prod(symbol^power) * prod(trig factors).
type Term struct {
	Coeff float64        `msgpack:"coeff"`
	Pows  map[string]int `msgpack:"pows"`
	Trigs []Trig         `msgpack:"trigs"`
}

// Expr is a sum of terms.
type Expr struct {
	Terms []Term `msgpack:"terms"`
}

// NewLinear builds a linear combination from symbol/coefficient pairs.
func NewLinear(coeffs map[string]float64, constant float64) Linear {
	c := make(map[string]float64, len(coeffs))
	for name, v := range coeffs {
		if v != 0 {
			c[name] = v
		}
	}
	return Linear{Coeffs: c, Const: constant}
}

// NewTerm builds a polynomial term.
func NewTerm(coeff float64, pows map[string]int) Term {
	p := make(map[string]int, len(pows))
	for name, pow := range pows {
		if pow != 0 {
			p[name] = pow
		}
	}
	return Term{Coeff: coeff, Pows: p}
}

// NewTrigTerm builds a term coeff * prod(symbol^power) * fn(arg).
func NewTrigTerm(coeff float64, pows map[string]int, fn TrigFn, arg Linear) Term {
	t := NewTerm(coeff, pows)
	t.Trigs = []Trig{{Fn: fn, Arg: arg}}
	return t
}

// Add appends terms to the expression, returning a new expression.
func (e Expr) Add(terms ...Term) Expr {
	out := e.Copy()
	for _, t := range terms {
		out.Terms = append(out.Terms, t.Copy())
	}
	return out
}

// Copy returns a deep copy of the expression. Instances handed to independent
// sweep workers rely on this.
func (e Expr) Copy() Expr {
	out := Expr{Terms: make([]Term, len(e.Terms))}
	for i, t := range e.Terms {
		out.Terms[i] = t.Copy()
	}
	return out
}

// Copy returns a deep copy of the term.
func (t Term) Copy() Term {
	out := Term{Coeff: t.Coeff, Pows: make(map[string]int, len(t.Pows))}
	for name, pow := range t.Pows {
		out.Pows[name] = pow
	}
	out.Trigs = make([]Trig, len(t.Trigs))
	for i, tr := range t.Trigs {
		out.Trigs[i] = Trig{Fn: tr.Fn, Arg: NewLinear(tr.Arg.Coeffs, tr.Arg.Const)}
	}
	return out
}

// FreeSymbols returns the sorted set of symbol names appearing in the term,
// including trig arguments.
func (t Term) FreeSymbols() []string {
	set := make(map[string]struct{})
	for name := range t.Pows {
		set[name] = struct{}{}
	}
	for _, tr := range t.Trigs {
		for name := range tr.Arg.Coeffs {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// FreeSymbols returns the sorted set of symbol names appearing anywhere in
// the expression.
func (e Expr) FreeSymbols() []string {
	set := make(map[string]struct{})
	for _, t := range e.Terms {
		for _, name := range t.FreeSymbols() {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// SubstituteParams folds numeric values for the named symbols into term
// coefficients and trig-argument constants. Symbols without a supplied value
// are left untouched.
func (e Expr) SubstituteParams(values map[string]float64) Expr {
	out := Expr{Terms: make([]Term, 0, len(e.Terms))}
	for _, t := range e.Terms {
		nt := t.Copy()
		for name, pow := range t.Pows {
			if v, ok := values[name]; ok {
				nt.Coeff *= math.Pow(v, float64(pow))
				delete(nt.Pows, name)
			}
		}
		for i, tr := range nt.Trigs {
			arg := NewLinear(tr.Arg.Coeffs, tr.Arg.Const)
			for name, c := range tr.Arg.Coeffs {
				if v, ok := values[name]; ok {
					arg.Const += c * v
					delete(arg.Coeffs, name)
				}
			}
			nt.Trigs[i].Arg = arg
		}
		out.Terms = append(out.Terms, nt)
	}
	return out
}

// Project keeps only terms whose dynamical symbols all carry indices from the
// given set. Terms with no dynamical symbols (pure constants or parameters)
// are kept when keepConstants is true.
func (e Expr) Project(indices map[int]bool, keepConstants bool) Expr {
	out := Expr{}
	for _, t := range e.Terms {
		idxs := t.VariableIndices()
		if len(idxs) == 0 {
			if keepConstants {
				out.Terms = append(out.Terms, t.Copy())
			}
			continue
		}
		inside := true
		for _, idx := range idxs {
			if !indices[idx] {
				inside = false
				break
			}
		}
		if inside {
			out.Terms = append(out.Terms, t.Copy())
		}
	}
	return out
}

// VariableIndices returns the sorted dynamical variable indices the term
// touches.
func (t Term) VariableIndices() []int {
	set := make(map[int]struct{})
	for _, name := range t.FreeSymbols() {
		kind, idx, ok := ClassifySymbol(name)
		if ok && kind.IsDynamical() {
			set[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// VariableIndices returns the sorted dynamical variable indices of the
// expression.
func (e Expr) VariableIndices() []int {
	set := make(map[int]struct{})
	for _, t := range e.Terms {
		for _, idx := range t.VariableIndices() {
			set[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Key returns a canonical identifier for a trig factor, used as a placeholder
// name during numeric assembly.
func (tr Trig) Key() string {
	names := sortedKeys(toSet(tr.Arg.Coeffs))
	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%+g*%s", tr.Arg.Coeffs[name], name))
	}
	if tr.Arg.Const != 0 {
		parts = append(parts, fmt.Sprintf("%+g", tr.Arg.Const))
	}
	return fmt.Sprintf("%s(%s)", tr.Fn, strings.Join(parts, ""))
}

func (t Term) String() string {
	parts := []string{fmt.Sprintf("%g", t.Coeff)}
	for _, name := range sortedKeys(toIntSet(t.Pows)) {
		if pow := t.Pows[name]; pow == 1 {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("%s^%d", name, pow))
		}
	}
	for _, tr := range t.Trigs {
		parts = append(parts, tr.Key())
	}
	return strings.Join(parts, "*")
}

func (e Expr) String() string {
	parts := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func toSet(m map[string]float64) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for name := range m {
		set[name] = struct{}{}
	}
	return set
}

func toIntSet(m map[string]int) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for name := range m {
		set[name] = struct{}{}
	}
	return set
}

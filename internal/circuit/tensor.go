package circuit

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Roshan-Thomas/scqubits/internal/linalg"
)

// kronOperator embeds a single-variable operator into this subsystem's local
// product space: identity factors for every variable before and after the
// target, in ascending variable-index order.
func (s *Subsystem) kronOperator(op *mat.CDense, idx int) (*mat.CDense, error) {
	pos := -1
	for i, v := range s.varIndices {
		if v == idx {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, configErrorf("variable %d not quantized in this subsystem", idx)
	}
	dims := s.dims()
	mats := make([]*mat.CDense, len(dims))
	for i, d := range dims {
		if i == pos {
			r, _ := op.Dims()
			if r != d {
				return nil, configErrorf("operator for variable %d is %d-dimensional, local space is %d", idx, r, d)
			}
			mats[i] = op
		} else {
			mats[i] = linalg.Identity(d)
		}
	}
	return linalg.KronAll(mats...), nil
}

// wrapChildOperator lifts an operator living in a child's full space into the
// parent's truncated product space: rotate into the child's eigenbasis, keep
// the lowest truncated_dim states, and kron with identities on the siblings.
func (s *Subsystem) wrapChildOperator(childPos int, inner *mat.CDense) (*mat.CDense, error) {
	child := s.children[childPos]
	res, err := child.eigensys(child.truncatedDim)
	if err != nil {
		return nil, err
	}
	reduced := linalg.Mul(linalg.Mul(linalg.Dagger(res.Vectors), inner), res.Vectors)

	mats := make([]*mat.CDense, len(s.children))
	for i, sibling := range s.children {
		if i == childPos {
			mats[i] = reduced
		} else {
			mats[i] = linalg.Identity(sibling.truncatedDim)
		}
	}
	return linalg.KronAll(mats...), nil
}

// childOwning returns the position of the child whose variable set contains
// idx, or -1 when no child owns it.
func (s *Subsystem) childOwning(idx int) int {
	for i, child := range s.children {
		if contains(child.varIndices, idx) {
			return i
		}
	}
	return -1
}

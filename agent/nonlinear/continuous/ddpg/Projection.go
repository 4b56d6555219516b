package ddpg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Projection maps between a full environmental vector space and the
// smaller subspace an agent actually observes or controls. The
// projection is defined by the indices of the full space that are kept.
//
// Environments may expose more observation or action dimensions than
// an agent needs. For example, an environment may expect full
// six-dimensional wrenches as actions while the agent only learns
// forces. A Projection reduces full vectors to the agent's subspace
// and expands the agent's vectors back to the full space, filling
// uncontrolled dimensions with 0.
type Projection struct {
	fullDims int
	indices  []int
}

// NewProjection returns a Projection onto the given indices of a
// fullDims-dimensional space.
func NewProjection(fullDims int, indices []int) (Projection, error) {
	if fullDims <= 0 {
		return Projection{}, fmt.Errorf("newprojection: full space must "+
			"have positive dimensionality \n\thave(%v)", fullDims)
	}
	if len(indices) == 0 {
		return Projection{}, fmt.Errorf("newprojection: no indices given")
	}
	if len(indices) > fullDims {
		return Projection{}, fmt.Errorf("newprojection: cannot project "+
			"%v-dimensional space onto %v indices", fullDims, len(indices))
	}

	seen := make(map[int]bool, len(indices))
	for _, index := range indices {
		if index < 0 || index >= fullDims {
			return Projection{}, fmt.Errorf("newprojection: index %v out "+
				"of range [0, %v)", index, fullDims)
		}
		if seen[index] {
			return Projection{}, fmt.Errorf("newprojection: duplicate "+
				"index %v", index)
		}
		seen[index] = true
	}

	return Projection{
		fullDims: fullDims,
		indices:  append([]int{}, indices...),
	}, nil
}

// Dims returns the dimensionality of the projected subspace
func (p Projection) Dims() int {
	return len(p.indices)
}

// FullDims returns the dimensionality of the full space
func (p Projection) FullDims() int {
	return p.fullDims
}

// Reduce projects a vector in the full space onto the subspace,
// returning only the components at the projection's indices.
func (p Projection) Reduce(v mat.Vector) ([]float64, error) {
	if v.Len() != p.fullDims {
		return nil, fmt.Errorf("reduce: invalid vector length \n\twant(%v)"+
			"\n\thave(%v)", p.fullDims, v.Len())
	}

	reduced := make([]float64, len(p.indices))
	for i, index := range p.indices {
		reduced[i] = v.AtVec(index)
	}
	return reduced, nil
}

// Expand embeds a vector in the subspace back into the full space.
// Components of the full space outside the projection's indices are 0.
func (p Projection) Expand(reduced []float64) (*mat.VecDense, error) {
	if len(reduced) != len(p.indices) {
		return nil, fmt.Errorf("expand: invalid vector length \n\twant(%v)"+
			"\n\thave(%v)", len(p.indices), len(reduced))
	}

	full := mat.NewVecDense(p.fullDims, nil)
	for i, index := range p.indices {
		full.SetVec(index, reduced[i])
	}
	return full, nil
}

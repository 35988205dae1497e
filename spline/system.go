package spline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition rejects constraint matrices whose LU solve would lose every
// significant digit.
const maxCondition = 1e14

// Location is one row of a segment constraint system: the Order-th derivative
// of the segment response at Ordinate.
type Location struct {
	Ordinate float64
	Order    int
}

// System is a factorised k×k constraint matrix for one segment. Row r holds the
// Order-th derivative of every basis function at locs[r].Ordinate, so solving
// it with a vector of target derivatives yields the segment coefficients.
//
// The factorisation happens once; Solve is reused for every trial parameter of
// the root search and for every Jacobian column.
type System struct {
	locs []Location
	lu   mat.LU
	k    int
}

// System builds and factorises the constraint matrix at locs. len(locs) must
// equal Count().
func (s *Segment) System(locs []Location) (*System, error) {
	k := len(s.funcs)
	if len(locs) != k {
		return nil, fmt.Errorf("Segment.System: %w: %d constraints for %d functions", ErrBasisOrderTooLow, len(locs), k)
	}

	a := mat.NewDense(k, k, nil)
	for r, loc := range locs {
		row, err := s.BasisResponse(loc.Ordinate, loc.Order)
		if err != nil {
			return nil, fmt.Errorf("Segment.System: row %d: %w", r, err)
		}
		a.SetRow(r, row)
	}

	sys := &System{locs: append([]Location(nil), locs...), k: k}
	sys.lu.Factorize(a)
	if c := sys.lu.Cond(); sys.lu.Det() == 0 || math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, fmt.Errorf("Segment.System [%v, %v]: %w (cond %.3g)", s.left, s.right, ErrSingularSystem, c)
	}
	return sys, nil
}

// Size returns k.
func (sys *System) Size() int { return sys.k }

// Locations returns a copy of the constraint rows.
func (sys *System) Locations() []Location {
	return append([]Location(nil), sys.locs...)
}

// Solve returns the coefficients whose derivatives at the constraint
// locations equal values.
func (sys *System) Solve(values []float64) ([]float64, error) {
	if len(values) != sys.k {
		return nil, fmt.Errorf("System.Solve: %w: %d values for %d constraints", ErrInvalidArgument, len(values), sys.k)
	}
	var x mat.VecDense
	if err := sys.lu.SolveVecTo(&x, false, mat.NewVecDense(sys.k, append([]float64(nil), values...))); err != nil {
		return nil, fmt.Errorf("System.Solve: %w: %v", ErrSingularSystem, err)
	}
	out := make([]float64, sys.k)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Sensitivity returns the coefficient change per unit change of constraint
// value r: column r of the inverse system matrix.
func (sys *System) Sensitivity(r int) ([]float64, error) {
	if r < 0 || r >= sys.k {
		return nil, fmt.Errorf("System.Sensitivity: %w: row %d of %d", ErrInvalidArgument, r, sys.k)
	}
	e := make([]float64, sys.k)
	e[r] = 1
	return sys.Solve(e)
}

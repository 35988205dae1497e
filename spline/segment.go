package spline

import (
	"fmt"

	"github.com/meenmo/curvecal/basis"
)

// Segment is one spline piece between two ordinates.
//
// A segment is created empty and frozen exactly once with its solved
// coefficients; it is read-only afterwards. Each segment owns its own basis
// functions (and therefore its own cached normalizers).
type Segment struct {
	left  float64
	right float64
	set   basis.Set
	funcs []basis.Function
	ext   []basis.Function
	coef  []float64
}

// NewSegment builds an uncalibrated segment over [left, right].
func NewSegment(left, right float64, set basis.Set) (*Segment, error) {
	funcs, err := set.Functions(left, right)
	if err != nil {
		return nil, fmt.Errorf("NewSegment: %w", err)
	}
	ext, err := set.Extended(left, right)
	if err != nil {
		return nil, fmt.Errorf("NewSegment: %w", err)
	}
	return &Segment{left: left, right: right, set: set, funcs: funcs, ext: ext}, nil
}

// Left returns the segment's left ordinate.
func (s *Segment) Left() float64 { return s.left }

// Right returns the segment's right ordinate.
func (s *Segment) Right() float64 { return s.right }

// Width returns right - left.
func (s *Segment) Width() float64 { return s.right - s.left }

// Basis returns the basis set descriptor.
func (s *Segment) Basis() basis.Set { return s.set }

// Count returns the number of basis functions (and coefficients).
func (s *Segment) Count() int { return len(s.funcs) }

// Functions returns the segment's raw basis functions.
func (s *Segment) Functions() []basis.Function {
	out := make([]basis.Function, len(s.funcs))
	copy(out, s.funcs)
	return out
}

// Calibrated reports whether the segment has been frozen.
func (s *Segment) Calibrated() bool { return s.coef != nil }

// Coefficients returns a copy of the solved coefficients (nil if uncalibrated).
func (s *Segment) Coefficients() []float64 {
	if s.coef == nil {
		return nil
	}
	out := make([]float64, len(s.coef))
	copy(out, s.coef)
	return out
}

// Freeze stores the solved coefficients. It may be called once.
func (s *Segment) Freeze(coef []float64) error {
	if s.coef != nil {
		return fmt.Errorf("Segment.Freeze [%v, %v]: %w", s.left, s.right, ErrAlreadyCalibrated)
	}
	if len(coef) != len(s.funcs) {
		return fmt.Errorf("Segment.Freeze: %w: %d coefficients for %d functions", ErrInvalidArgument, len(coef), len(s.funcs))
	}
	for _, c := range coef {
		if !finite(c) {
			return fmt.Errorf("Segment.Freeze: %w: non-finite coefficient", ErrInvalidArgument)
		}
	}
	s.coef = make([]float64, len(coef))
	copy(s.coef, coef)
	return nil
}

// Response evaluates the order-th derivative of the basis combination coef at
// x. This is the hot path: the calibrator calls it with trial coefficients on
// uncalibrated segments.
func (s *Segment) Response(coef []float64, x float64, order int) (float64, error) {
	return response(s.funcs, coef, x, order)
}

// BasisResponse returns the order-th derivative of each basis function at x.
func (s *Segment) BasisResponse(x float64, order int) ([]float64, error) {
	return basisRow(s.funcs, x, order)
}

// Value returns the calibrated response at x.
func (s *Segment) Value(x float64) (float64, error) {
	return s.Derivative(x, 0)
}

// Derivative returns the calibrated order-th derivative at x.
func (s *Segment) Derivative(x float64, order int) (float64, error) {
	if s.coef == nil {
		return 0, ErrNotCalibrated
	}
	return response(s.funcs, s.coef, x, order)
}

// Integrate returns the integral of the calibrated response over [a, b].
func (s *Segment) Integrate(a, b float64) (float64, error) {
	if s.coef == nil {
		return 0, ErrNotCalibrated
	}
	sum := 0.0
	for i, fn := range s.funcs {
		v, err := fn.Integrate(a, b)
		if err != nil {
			return 0, err
		}
		sum += s.coef[i] * v
	}
	return sum, nil
}

// extended evaluates the calibrated expansion beyond the segment edges.
func (s *Segment) extended(x float64, order int) (float64, error) {
	if s.coef == nil {
		return 0, ErrNotCalibrated
	}
	return response(s.ext, s.coef, x, order)
}

func (s *Segment) extendedRow(x float64, order int) ([]float64, error) {
	return basisRow(s.ext, x, order)
}

func response(funcs []basis.Function, coef []float64, x float64, order int) (float64, error) {
	if len(coef) != len(funcs) {
		return 0, fmt.Errorf("%w: %d coefficients for %d functions", ErrInvalidArgument, len(coef), len(funcs))
	}
	sum := 0.0
	for i, fn := range funcs {
		if coef[i] == 0 {
			continue
		}
		v, err := fn.Derivative(x, order)
		if err != nil {
			return 0, err
		}
		sum += coef[i] * v
	}
	return sum, nil
}

func basisRow(funcs []basis.Function, x float64, order int) ([]float64, error) {
	row := make([]float64, len(funcs))
	for i, fn := range funcs {
		v, err := fn.Derivative(x, order)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

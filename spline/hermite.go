package spline

import "fmt"

// hermiteRows is the number of constraints a local Hermite fit pins per
// segment: value and slope at both edges.
const hermiteRows = 4

// FitHermite calibrates every segment of an uncalibrated stretch from knot
// values and slopes. Segment i matches (values[i], slopes[i]) at its left edge
// and (values[i+1], slopes[i+1]) at its right edge; any remaining basis
// freedom is pinned by vanishing derivatives of order 2, 3, ... at the right
// edge. The result is C1 regardless of the stretch's nominal continuity.
func (s *Stretch) FitHermite(values, slopes []float64) error {
	if len(values) != len(s.knots) || len(slopes) != len(s.knots) {
		return fmt.Errorf("FitHermite: %w: %d values, %d slopes for %d knots", ErrInvalidArgument, len(values), len(slopes), len(s.knots))
	}
	for i := range values {
		if !finite(values[i]) || !finite(slopes[i]) {
			return fmt.Errorf("FitHermite: %w: non-finite input at knot %d", ErrInvalidArgument, i)
		}
	}

	coefs := make([][]float64, len(s.segs))
	for i, seg := range s.segs {
		if seg.Calibrated() {
			return fmt.Errorf("FitHermite: segment %d: %w", i, ErrAlreadyCalibrated)
		}
		k := seg.Count()
		if k < hermiteRows {
			return fmt.Errorf("FitHermite: %w: %s has %d functions, need %d", ErrBasisOrderTooLow, seg.set.Name(), k, hermiteRows)
		}
		locs := []Location{
			{Ordinate: seg.left, Order: 0},
			{Ordinate: seg.left, Order: 1},
			{Ordinate: seg.right, Order: 0},
			{Ordinate: seg.right, Order: 1},
		}
		rhs := []float64{values[i], slopes[i], values[i+1], slopes[i+1]}
		for order := 2; len(locs) < k; order++ {
			locs = append(locs, Location{Ordinate: seg.right, Order: order})
			rhs = append(rhs, 0)
		}
		sys, err := seg.System(locs)
		if err != nil {
			return fmt.Errorf("FitHermite: segment %d: %w", i, err)
		}
		c, err := sys.Solve(rhs)
		if err != nil {
			return fmt.Errorf("FitHermite: segment %d: %w", i, err)
		}
		coefs[i] = c
	}

	// Freeze only once every segment solved, so a failure leaves s untouched.
	for i, seg := range s.segs {
		if err := seg.Freeze(coefs[i]); err != nil {
			return fmt.Errorf("FitHermite: segment %d: %w", i, err)
		}
	}
	return nil
}

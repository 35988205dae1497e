package calibrate

import (
	"fmt"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/spline"
)

// Skeleton builds the uncalibrated stretch for bindings: knots at anchor and
// every distinct binding maturity.
func Skeleton(anchor float64, bindings []Binding, sets []basis.Set, boundary spline.Boundary, continuity int, opts ...spline.Option) (*spline.Stretch, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("Skeleton: %w: no bindings", spline.ErrInsufficientKnots)
	}
	for i, b := range bindings {
		if err := b.validate(i); err != nil {
			return nil, fmt.Errorf("Skeleton: %w", err)
		}
	}
	maturities := Maturities(bindings)
	if maturities[0] <= anchor {
		return nil, fmt.Errorf("Skeleton: %w: maturity %v not after anchor %v", ErrInvalidArgument, maturities[0], anchor)
	}
	knots := append([]float64{anchor}, maturities...)
	s, err := spline.New(knots, sets, boundary, continuity, opts...)
	if err != nil {
		return nil, fmt.Errorf("Skeleton: %w", err)
	}
	return s, nil
}

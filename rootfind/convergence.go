package rootfind

import (
	"fmt"
	"math"
)

// Convergence is relative-to-initial-residual convergence with an absolute
// floor:
//
//	|f(x) - goal| < max(|f(x0) - goal| · RelativeFactor, AbsoluteFloor)
//
// With CheckVariate set, the last variate step must additionally satisfy
// |Δx| < max(|x0| · VariateRelative, VariateAbsolute).
type Convergence struct {
	RelativeFactor float64
	AbsoluteFloor  float64
	MaxIterations  int

	CheckVariate    bool
	VariateRelative float64
	VariateAbsolute float64
}

// DefaultConvergence returns the settings used when none are configured.
func DefaultConvergence() Convergence {
	return Convergence{
		RelativeFactor:  1e-10,
		AbsoluteFloor:   1e-13,
		MaxIterations:   100,
		VariateRelative: 1e-12,
		VariateAbsolute: 1e-15,
	}
}

// Validate rejects non-positive tolerances and iteration caps.
func (c Convergence) Validate() error {
	if !(c.RelativeFactor >= 0) || math.IsInf(c.RelativeFactor, 0) {
		return fmt.Errorf("%w: relative factor %v", ErrInvalidArgument, c.RelativeFactor)
	}
	if !(c.AbsoluteFloor > 0) || math.IsInf(c.AbsoluteFloor, 0) {
		return fmt.Errorf("%w: absolute floor %v must be positive", ErrInvalidArgument, c.AbsoluteFloor)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations %d", ErrInvalidArgument, c.MaxIterations)
	}
	if c.CheckVariate && (!(c.VariateAbsolute > 0) || !(c.VariateRelative >= 0)) {
		return fmt.Errorf("%w: variate tolerances %v/%v", ErrInvalidArgument, c.VariateRelative, c.VariateAbsolute)
	}
	return nil
}

// criteria is Convergence resolved against the starting point.
type criteria struct {
	residual float64
	variate  float64
	check    bool
}

func (c Convergence) resolve(x0, f0 float64) criteria {
	return criteria{
		residual: math.Max(math.Abs(f0)*c.RelativeFactor, c.AbsoluteFloor),
		variate:  math.Max(math.Abs(x0)*c.VariateRelative, c.VariateAbsolute),
		check:    c.CheckVariate,
	}
}

// met reports convergence of residual fx after a variate step dx.
func (k criteria) met(fx, dx float64) bool {
	if !(math.Abs(fx) < k.residual) {
		return false
	}
	return !k.check || math.Abs(dx) < k.variate
}

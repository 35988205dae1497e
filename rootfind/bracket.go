package rootfind

import (
	"fmt"
	"math"
)

// Initialization places the search. Without a hard bracket, bracketing
// solvers walk outward from Start on both sides, each trial one step past the
// last good point, with the step growing by Expansion until the objective
// changes sign. A trial that errors or evaluates to NaN or ±Inf halves that
// side's step instead. Every trial counts against MaxExpansions.
//
// For Newton, a hard bracket clamps every step instead.
type Initialization struct {
	Start         float64
	Step          float64
	Expansion     float64
	MaxExpansions int

	HasHardBracket bool
	HardLeft       float64
	HardRight      float64
}

// DefaultInitialization starts at start with step max(|start|·1e-3, 1e-4)
// doubling up to 50 times.
func DefaultInitialization(start float64) Initialization {
	return Initialization{
		Start:         start,
		Step:          math.Max(math.Abs(start)*1e-3, 1e-4),
		Expansion:     2,
		MaxExpansions: 50,
	}
}

// Within returns a copy constrained to the hard bracket [lo, hi].
func (in Initialization) Within(lo, hi float64) Initialization {
	in.HasHardBracket = true
	in.HardLeft, in.HardRight = lo, hi
	return in
}

func (in Initialization) validate() error {
	if !finite(in.Start) {
		return fmt.Errorf("%w: start %v", ErrInvalidArgument, in.Start)
	}
	if in.HasHardBracket {
		if !finite(in.HardLeft) || !finite(in.HardRight) || in.HardLeft >= in.HardRight {
			return fmt.Errorf("%w: hard bracket [%v, %v]", ErrInvalidArgument, in.HardLeft, in.HardRight)
		}
		return nil
	}
	if !(in.Step > 0) || !finite(in.Step) {
		return fmt.Errorf("%w: step %v", ErrInvalidArgument, in.Step)
	}
	if !(in.Expansion > 1) || !finite(in.Expansion) {
		return fmt.Errorf("%w: expansion %v", ErrInvalidArgument, in.Expansion)
	}
	if in.MaxExpansions <= 0 {
		return fmt.Errorf("%w: max expansions %d", ErrInvalidArgument, in.MaxExpansions)
	}
	return nil
}

// point is an abscissa with its residual.
type point struct{ x, f float64 }

// search returns a bracket a.x < b.x with a.f and b.f of opposite sign (or
// one of them zero). f0 is the residual at in.Start.
func (in Initialization) search(eval func(float64) (float64, error), f0 float64) (point, point, error) {
	if in.HasHardBracket {
		lo, err := eval(in.HardLeft)
		if err != nil {
			return point{}, point{}, err
		}
		hi, err := eval(in.HardRight)
		if err != nil {
			return point{}, point{}, err
		}
		a, b := point{in.HardLeft, lo}, point{in.HardRight, hi}
		if !finite(lo) || !finite(hi) || !straddles(lo, hi) {
			return a, b, fmt.Errorf("%w: f(%v)=%v, f(%v)=%v", ErrNoBracketFound, a.x, a.f, b.x, b.f)
		}
		return a, b, nil
	}

	sides := [2]side{
		{last: point{in.Start, f0}, dir: 1, step: in.Step, open: true},
		{last: point{in.Start, f0}, dir: -1, step: in.Step, open: true},
	}
	var lastErr error
	for n := 0; n < in.MaxExpansions && (sides[0].open || sides[1].open); n++ {
		for i := range sides {
			sd := &sides[i]
			if !sd.open {
				continue
			}
			x := sd.last.x + sd.dir*sd.step
			v, err := eval(x)
			if err != nil || !finite(v) {
				if err != nil {
					lastErr = err
				}
				// Back off toward the last good point.
				sd.step /= 2
				if sd.step <= 1e-12*math.Max(1, math.Abs(sd.last.x)) {
					sd.open = false
				}
				continue
			}
			next := point{x, v}
			if straddles(sd.last.f, next.f) {
				if sd.dir > 0 {
					return sd.last, next, nil
				}
				return next, sd.last, nil
			}
			sd.last = next
			sd.step *= in.Expansion
		}
	}
	left, right := sides[1].last, sides[0].last
	if lastErr != nil {
		return left, right, fmt.Errorf("%w: searched [%v, %v] from %v: %w", ErrNoBracketFound, left.x, right.x, in.Start, lastErr)
	}
	return left, right, fmt.Errorf("%w: searched [%v, %v] from %v", ErrNoBracketFound, left.x, right.x, in.Start)
}

// side is one direction of the outward search from Start.
type side struct {
	last point
	dir  float64
	step float64
	open bool
}

func straddles(fa, fb float64) bool {
	return fa == 0 || fb == 0 || math.Signbit(fa) != math.Signbit(fb)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

package rootfind

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// NewtonRaphson is the open solver x ← x - f(x)/f'(x). Objectives that do not
// implement Differentiable are differenced numerically with a central formula.
// A hard bracket in the Initialization clamps every step.
type NewtonRaphson struct {
	conv Convergence
}

// NewNewton returns a Newton-Raphson solver.
func NewNewton(conv Convergence) (*NewtonRaphson, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	return &NewtonRaphson{conv: conv}, nil
}

// Solve iterates from init.Start.
func (n *NewtonRaphson) Solve(obj Objective, goal float64, init Initialization) (*Result, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil objective", ErrInvalidArgument)
	}
	if !finite(init.Start) {
		return nil, fmt.Errorf("%w: start %v", ErrInvalidArgument, init.Start)
	}
	if init.HasHardBracket && !(init.HardLeft < init.HardRight) {
		return nil, fmt.Errorf("%w: hard bracket [%v, %v]", ErrInvalidArgument, init.HardLeft, init.HardRight)
	}

	cnt := &counter{obj: obj, goal: goal}
	x := init.Start
	if init.HasHardBracket {
		x = clamp(x, init.HardLeft, init.HardRight)
	}
	res := &Result{State: Initialize, Root: x, Bracket: [2]float64{x, x}}
	if init.HasHardBracket {
		res.Bracket = [2]float64{init.HardLeft, init.HardRight}
	}
	fail := func(err error) (*Result, error) {
		res.State = Failed
		res.Evaluations = cnt.calls
		return res, err
	}

	f, err := cnt.eval(x)
	if err != nil {
		return fail(err)
	}
	res.Value = f + goal
	if !finite(f) {
		return fail(fmt.Errorf("%w: f(%v) = %v at start", ErrNonConvergence, x, f))
	}
	crit := n.conv.resolve(x, f)
	if crit.met(f, 0) {
		res.State = Converged
		res.Evaluations = cnt.calls
		return res, nil
	}

	res.State = Iterate
	for it := 1; it <= n.conv.MaxIterations; it++ {
		d, err := n.slope(cnt, x)
		if err != nil {
			return fail(err)
		}
		if d == 0 || !finite(d) {
			return fail(fmt.Errorf("%w: derivative %v at x=%v (iteration %d)", ErrNonConvergence, d, x, it))
		}

		next := x - f/d
		if init.HasHardBracket {
			next = clamp(next, init.HardLeft, init.HardRight)
		}
		fn, err := cnt.eval(next)
		res.Iterations = it
		if err != nil {
			return fail(err)
		}
		dx := next - x
		x, f = next, fn
		res.Root, res.Value = x, f+goal
		if !finite(f) {
			return fail(fmt.Errorf("%w: f(%v) = %v (iteration %d)", ErrNonConvergence, x, f, it))
		}
		if f == 0 || crit.met(f, dx) {
			res.State = Converged
			res.Evaluations = cnt.calls
			return res, nil
		}
	}
	return fail(fmt.Errorf("%w: newton after %d iterations, x=%v residual=%v",
		ErrNonConvergence, n.conv.MaxIterations, x, f))
}

// slope returns f'(x), analytically when available.
func (n *NewtonRaphson) slope(cnt *counter, x float64) (float64, error) {
	if d, ok := cnt.obj.(Differentiable); ok {
		return d.Derivative(x)
	}
	var ferr error
	h := 1e-6 * math.Max(1, math.Abs(x))
	v := fd.Derivative(func(t float64) float64 {
		r, err := cnt.eval(t)
		if err != nil {
			ferr = err
			return math.NaN()
		}
		return r
	}, x, &fd.Settings{Formula: fd.Central, Step: h})
	return v, ferr
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package rootfind

import "fmt"

// Bracketing is a sign-change solver using one update method.
type Bracketing struct {
	method Method
	conv   Convergence
	step   update
}

// NewBracketing returns a bracketing solver for method.
func NewBracketing(method Method, conv Convergence) (*Bracketing, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	var step update
	switch method {
	case Bisection:
		step = bisection
	case FalsePosition:
		step = falsePosition
	case Quadratic:
		step = quadratic
	case InverseQuadratic:
		step = inverseQuadratic
	case Ridder:
		step = ridder
	case Brent:
		step = brent
	default:
		return nil, fmt.Errorf("%w: %s is not a bracketing method", ErrInvalidArgument, method)
	}
	return &Bracketing{method: method, conv: conv, step: step}, nil
}

// Method returns the update method.
func (b *Bracketing) Method() Method { return b.method }

// Solve runs Initialize (residual at init.Start, bracket search) and then
// iterates until convergence or MaxIterations.
func (b *Bracketing) Solve(obj Objective, goal float64, init Initialization) (*Result, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil objective", ErrInvalidArgument)
	}
	if err := init.validate(); err != nil {
		return nil, err
	}

	cnt := &counter{obj: obj, goal: goal}
	res := &Result{State: Initialize, Root: init.Start}
	fail := func(err error) (*Result, error) {
		res.State = Failed
		res.Evaluations = cnt.calls
		return res, err
	}
	done := func(p point) (*Result, error) {
		res.Root, res.Value = p.x, p.f+goal
		res.State = Converged
		res.Evaluations = cnt.calls
		return res, nil
	}

	f0, err := cnt.eval(init.Start)
	if err != nil {
		return fail(err)
	}
	res.Value = f0 + goal
	if !finite(f0) {
		return fail(fmt.Errorf("%w: f(%v) = %v at start", ErrNoBracketFound, init.Start, f0))
	}
	crit := b.conv.resolve(init.Start, f0)
	res.Bracket = [2]float64{init.Start, init.Start}
	if crit.met(f0, 0) {
		return done(point{init.Start, f0})
	}

	lo, hi, err := init.search(cnt.eval, f0)
	res.Bracket = [2]float64{lo.x, hi.x}
	if err != nil {
		return fail(err)
	}
	for _, p := range []point{lo, hi} {
		if p.f == 0 || crit.met(p.f, 0) && !crit.check {
			return done(p)
		}
	}

	s := newBracketState(lo, hi, cnt.eval)
	res.State = Iterate
	for it := 1; it <= b.conv.MaxIterations; it++ {
		before := s.last.x
		p, err := b.step(s, crit)
		res.Iterations = it
		res.Root, res.Value = p.x, p.f+goal
		res.Bracket = [2]float64{s.a.x, s.b.x}
		if err != nil {
			return fail(err)
		}
		if p.f == 0 || crit.met(p.f, p.x-before) {
			return done(p)
		}
	}
	return fail(fmt.Errorf("%w: %s after %d iterations, x=%v residual=%v",
		ErrNonConvergence, b.method, b.conv.MaxIterations, res.Root, res.Value-goal))
}

package rootfind

import (
	"fmt"
	"math"
)

// bracketState is the working bracket of one solve. a.x < b.x and the
// residuals a.f, b.f have opposite signs throughout.
type bracketState struct {
	a, b    point
	last    point
	dropped point // endpoint most recently replaced
	eval    func(float64) (float64, error)

	// FalsePosition: Illinois weights and the side replaced last step.
	wa, wb   float64
	lastSide int

	// InverseQuadratic: bisect next when the previous step shrank too little.
	forceBisect bool

	brent *brentState
}

func newBracketState(lo, hi point, eval func(float64) (float64, error)) *bracketState {
	s := &bracketState{a: lo, b: hi, eval: eval, wa: 1, wb: 1}
	s.last, s.dropped = hi, lo
	if math.Abs(lo.f) < math.Abs(hi.f) {
		s.last, s.dropped = lo, hi
	}
	return s
}

func (s *bracketState) mid() float64 { return 0.5 * (s.a.x + s.b.x) }

func (s *bracketState) width() float64 { return s.b.x - s.a.x }

func (s *bracketState) contains(x float64) bool { return x > s.a.x && x < s.b.x }

// tighten replaces the endpoint whose residual shares p's sign. It returns -1
// when a was replaced, +1 for b and 0 when p lies outside the bracket.
func (s *bracketState) tighten(p point) int {
	if !s.contains(p.x) {
		return 0
	}
	if p.f != 0 && math.Signbit(p.f) == math.Signbit(s.a.f) {
		s.dropped, s.a = s.a, p
		return -1
	}
	s.dropped, s.b = s.b, p
	return 1
}

// probe evaluates x, tightens the bracket and records x as the latest iterate.
func (s *bracketState) probe(x float64) (point, int, error) {
	v, err := s.eval(x)
	if err != nil {
		return point{}, 0, err
	}
	if !finite(v) {
		return point{x, v}, 0, fmt.Errorf("%w: f(%v) = %v inside bracket", ErrNonConvergence, x, v)
	}
	p := point{x, v}
	side := s.tighten(p)
	s.last = p
	return p, side, nil
}

// update advances a bracket by one iteration and returns the latest iterate.
type update func(s *bracketState, c criteria) (point, error)

func bisection(s *bracketState, _ criteria) (point, error) {
	p, _, err := s.probe(s.mid())
	return p, err
}

// falsePosition is regula falsi with the Illinois modification: when the same
// endpoint is replaced twice running, the retained endpoint's residual is
// halved for the next interpolation.
func falsePosition(s *bracketState, _ criteria) (point, error) {
	fa, fb := s.a.f*s.wa, s.b.f*s.wb
	x := (s.a.x*fb - s.b.x*fa) / (fb - fa)
	if !s.contains(x) {
		x = s.mid()
	}
	p, side, err := s.probe(x)
	if err != nil {
		return p, err
	}
	switch side {
	case -1:
		s.wa = 1
		if s.lastSide == -1 {
			s.wb *= 0.5
		}
	case 1:
		s.wb = 1
		if s.lastSide == 1 {
			s.wa *= 0.5
		}
	}
	s.lastSide = side
	return p, nil
}

// quadratic fits a parabola through the endpoints and the midpoint and moves
// to its root nearest the midpoint (Muller's step). The midpoint evaluation
// halves the bracket first, so the step never does worse than bisection.
func quadratic(s *bracketState, _ criteria) (point, error) {
	a, b := s.a, s.b
	m, _, err := s.probe(s.mid())
	if err != nil || m.f == 0 {
		return m, err
	}

	d1 := (m.f - a.f) / (m.x - a.x)
	d2 := ((b.f-m.f)/(b.x-m.x) - d1) / (b.x - a.x)
	slope := d1 + d2*(m.x-a.x)

	var t float64
	switch {
	case math.Abs(d2) < 1e-300:
		if slope == 0 {
			return m, nil
		}
		t = -m.f / slope
	default:
		disc := slope*slope - 4*d2*m.f
		if disc < 0 {
			return m, nil
		}
		den := slope + math.Copysign(math.Sqrt(disc), slope)
		if den == 0 {
			return m, nil
		}
		t = -2 * m.f / den
	}
	if x := m.x + t; s.contains(x) {
		p, _, err := s.probe(x)
		return p, err
	}
	return m, nil
}

// inverseQuadratic interpolates x as a quadratic in f through both endpoints
// and the endpoint dropped last step. It falls back to bisection when the
// interpolant leaves the bracket, when residuals coincide, or after a step that
// failed to halve the bracket.
func inverseQuadratic(s *bracketState, _ criteria) (point, error) {
	before := s.width()
	a, b, c := s.a, s.b, s.dropped

	x := math.NaN()
	if !s.forceBisect && a.f != b.f && a.f != c.f && b.f != c.f {
		x = a.x*b.f*c.f/((a.f-b.f)*(a.f-c.f)) +
			b.x*a.f*c.f/((b.f-a.f)*(b.f-c.f)) +
			c.x*a.f*b.f/((c.f-a.f)*(c.f-b.f))
	}
	bisected := false
	if !s.contains(x) {
		x = s.mid()
		bisected = true
	}
	p, _, err := s.probe(x)
	if err != nil {
		return p, err
	}
	s.forceBisect = !bisected && s.width() > 0.5*before
	return p, nil
}

// ridder evaluates the midpoint, then applies the exponential correction
//
//	x = m + (m-a)·sign(fa-fb)·fm / sqrt(fm² - fa·fb)
func ridder(s *bracketState, _ criteria) (point, error) {
	a, b := s.a, s.b
	m, _, err := s.probe(s.mid())
	if err != nil || m.f == 0 {
		return m, err
	}
	disc := m.f*m.f - a.f*b.f
	if !(disc > 0) {
		return m, nil
	}
	sign := 1.0
	if a.f < b.f {
		sign = -1
	}
	x := m.x + (m.x-a.x)*sign*m.f/math.Sqrt(disc)
	if !s.contains(x) {
		return m, nil
	}
	p, _, err := s.probe(x)
	return p, err
}

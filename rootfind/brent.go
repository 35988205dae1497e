package rootfind

import "math"

// brentState is the working state of Brent's compound method: b is the best
// iterate, c the contrapoint (f(b), f(c) of opposite sign) and a the previous
// b. d and e are the last two step lengths.
type brentState struct {
	a, b, c point
	d, e    float64
}

func newBrentState(lo, hi point) *brentState {
	return &brentState{a: lo, b: hi, c: hi, d: hi.x - lo.x, e: hi.x - lo.x}
}

// brent combines inverse quadratic interpolation, secant steps and bisection,
// accepting an interpolated step only while it shrinks faster than bisection.
func brent(s *bracketState, k criteria) (point, error) {
	if s.brent == nil {
		s.brent = newBrentState(s.a, s.b)
	}
	st := s.brent

	if math.Signbit(st.b.f) == math.Signbit(st.c.f) {
		st.c = st.a
		st.d = st.b.x - st.a.x
		st.e = st.d
	}
	if math.Abs(st.c.f) < math.Abs(st.b.f) {
		st.a, st.b, st.c = st.b, st.c, st.b
	}

	tol := 2*epsilon*math.Abs(st.b.x) + 0.5*k.variate
	xm := 0.5 * (st.c.x - st.b.x)

	if math.Abs(st.e) >= tol && math.Abs(st.a.f) > math.Abs(st.b.f) {
		sr := st.b.f / st.a.f
		var p, q float64
		if st.a.x == st.c.x {
			p = 2 * xm * sr
			q = 1 - sr
		} else {
			qa := st.a.f / st.c.f
			r := st.b.f / st.c.f
			p = sr * (2*xm*qa*(qa-r) - (st.b.x-st.a.x)*(r-1))
			q = (qa - 1) * (r - 1) * (sr - 1)
		}
		if p > 0 {
			q = -q
		}
		p = math.Abs(p)
		if 2*p < math.Min(3*xm*q-math.Abs(tol*q), math.Abs(st.e*q)) {
			st.e = st.d
			st.d = p / q
		} else {
			st.d = xm
			st.e = st.d
		}
	} else {
		st.d = xm
		st.e = st.d
	}

	st.a = st.b
	x := st.b.x
	if math.Abs(st.d) > tol {
		x += st.d
	} else {
		x += math.Copysign(tol, xm)
	}

	p, _, err := s.probe(x)
	if err != nil {
		return p, err
	}
	st.b = p
	return p, nil
}

const epsilon = 2.220446049250313e-16

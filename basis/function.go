package basis

import (
	"fmt"
	"math"
)

// Function is one basis function on a segment.
type Function interface {
	// Left and Right bound the segment the function is defined on.
	Left() float64
	Right() float64
	// Evaluate returns the function value at x.
	Evaluate(x float64) (float64, error)
	// Derivative returns the order-th derivative at x; order 0 is the value.
	Derivative(x float64, order int) (float64, error)
	// Integrate returns the definite integral over [a, b].
	Integrate(a, b float64) (float64, error)
}

// Normalized is implemented by tension hats. Normalizer is the raw hat's peak
// value on the segment; the hat is divided by it so that its peak is 1.
type Normalized interface {
	Function
	Normalizer() float64
}

// shape is a function of the local coordinate u.
type shape interface {
	at(u float64, order int) float64
	integral(ua, ub float64) float64
}

// bounded shapes are finite only on the open interval (lo, hi) of u.
type bounded interface {
	bounds() (lo, hi float64)
}

// normalizing shapes report the normalizer they were built with.
type normalizing interface {
	normalizer() float64
}

// hat binds a shape to a segment.
type hat struct {
	sh       shape
	left     float64
	right    float64
	width    float64
	slack    float64
	extended bool
}

func newHat(sh shape, left, right float64, extended bool) Function {
	h := &hat{
		sh:       sh,
		left:     left,
		right:    right,
		width:    right - left,
		slack:    1e-12 * math.Max(1, math.Max(math.Abs(left), math.Abs(right))),
		extended: extended,
	}
	if _, ok := sh.(normalizing); ok {
		return &normalizedHat{hat: h}
	}
	return h
}

func (h *hat) Left() float64  { return h.left }
func (h *hat) Right() float64 { return h.right }

func (h *hat) check(x float64) error {
	if !finite(x) {
		return fmt.Errorf("%w: ordinate %v", ErrInvalidArgument, x)
	}
	if !h.extended && (x < h.left-h.slack || x > h.right+h.slack) {
		return fmt.Errorf("%w: ordinate %v outside [%v, %v]", ErrInvalidArgument, x, h.left, h.right)
	}
	if b, ok := h.sh.(bounded); ok && h.extended {
		lo, hi := b.bounds()
		if u := h.local(x); !(u > lo && u < hi) {
			return fmt.Errorf("%w: ordinate %v past the pole at %v", ErrInvalidArgument, x, h.pole(u, lo, hi))
		}
	}
	return nil
}

func (h *hat) pole(u, lo, hi float64) float64 {
	if u <= lo {
		return h.left + lo*h.width
	}
	return h.left + hi*h.width
}

func (h *hat) local(x float64) float64 {
	u := (x - h.left) / h.width
	if !h.extended {
		// Absorb knot round-off admitted by the slack.
		if u < 0 {
			u = 0
		} else if u > 1 {
			u = 1
		}
	}
	return u
}

func (h *hat) Evaluate(x float64) (float64, error) {
	return h.Derivative(x, 0)
}

func (h *hat) Derivative(x float64, order int) (float64, error) {
	if order < 0 {
		return 0, fmt.Errorf("%w: derivative order %d", ErrInvalidArgument, order)
	}
	if err := h.check(x); err != nil {
		return 0, err
	}
	v := h.sh.at(h.local(x), order)
	if order > 0 {
		v /= math.Pow(h.width, float64(order))
	}
	if !finite(v) {
		return 0, fmt.Errorf("%w: derivative %d at %v is %v", ErrInvalidArgument, order, x, v)
	}
	return v, nil
}

func (h *hat) Integrate(a, b float64) (float64, error) {
	if err := h.check(a); err != nil {
		return 0, err
	}
	if err := h.check(b); err != nil {
		return 0, err
	}
	v := h.width * h.sh.integral(h.local(a), h.local(b))
	if !finite(v) {
		return 0, fmt.Errorf("%w: integral over [%v, %v] is %v", ErrInvalidArgument, a, b, v)
	}
	return v, nil
}

type normalizedHat struct {
	*hat
}

func (n *normalizedHat) Normalizer() float64 {
	return n.sh.(normalizing).normalizer()
}

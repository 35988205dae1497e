package basis

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// quadraturePoints is the Gauss-Legendre order used for hats without a
// closed-form antiderivative.
const quadraturePoints = 16

// monomial is u^p.
type monomial int

func (m monomial) at(u float64, order int) float64 {
	p := int(m)
	if order > p {
		return 0
	}
	c := 1.0
	for k := 0; k < order; k++ {
		c *= float64(p - k)
	}
	return c * math.Pow(u, float64(p-order))
}

func (m monomial) integral(ua, ub float64) float64 {
	p := float64(m) + 1
	return (math.Pow(ub, p) - math.Pow(ua, p)) / p
}

// reflected mirrors a trailing hat into its leading companion: f(1-u).
type reflected struct {
	inner shape
}

func (r reflected) at(u float64, order int) float64 {
	v := r.inner.at(1-u, order)
	if order%2 == 1 {
		v = -v
	}
	return v
}

func (r reflected) integral(ua, ub float64) float64 {
	return r.inner.integral(1-ub, 1-ua)
}

func (r reflected) bounds() (float64, float64) {
	if b, ok := r.inner.(bounded); ok {
		lo, hi := b.bounds()
		return 1 - hi, 1 - lo
	}
	return math.Inf(-1), math.Inf(1)
}

func (r reflected) normalizer() float64 {
	if n, ok := r.inner.(normalizing); ok {
		return n.normalizer()
	}
	return 1
}

// hyperbolic is the trailing hyperbolic tension hat sinh(τu)/sinh(τ).
type hyperbolic struct {
	tau  float64
	norm float64
}

func newHyperbolic(tau float64) *hyperbolic {
	// The raw hat sinh(τu) peaks at u=1.
	return &hyperbolic{tau: tau, norm: math.Sinh(tau)}
}

func (h *hyperbolic) at(u float64, order int) float64 {
	var v float64
	if order%2 == 0 {
		v = math.Sinh(h.tau * u)
	} else {
		v = math.Cosh(h.tau * u)
	}
	return math.Pow(h.tau, float64(order)) * v / h.norm
}

func (h *hyperbolic) integral(ua, ub float64) float64 {
	return (math.Cosh(h.tau*ub) - math.Cosh(h.tau*ua)) / (h.tau * h.norm)
}

func (h *hyperbolic) normalizer() float64 { return h.norm }

// rational is the trailing rational tension hat u³/(1+τ(1-u)).
type rational struct {
	tau  float64
	norm float64
}

func newRational(tau float64) *rational {
	r := &rational{tau: tau, norm: 1}
	r.norm = r.raw(1, 0)
	return r
}

// raw evaluates the un-normalised hat by Leibniz's rule on u³ · w⁻¹ with
// w = 1+τ-τu, whose n-th derivative is n!·τⁿ·w^-(n+1).
func (r *rational) raw(u float64, order int) float64 {
	w := 1 + r.tau - r.tau*u
	cubic := [4]float64{u * u * u, 3 * u * u, 6 * u, 6}

	sum := 0.0
	binom := 1.0
	for k := 0; k <= order && k < 4; k++ {
		m := order - k
		g := factorial(m) * math.Pow(r.tau, float64(m)) * math.Pow(w, -float64(m+1))
		sum += binom * cubic[k] * g
		binom = binom * float64(order-k) / float64(k+1)
	}
	return sum
}

func (r *rational) at(u float64, order int) float64 {
	return r.raw(u, order) / r.norm
}

func (r *rational) integral(ua, ub float64) float64 {
	switch {
	case ua == ub:
		return 0
	case ua > ub:
		return -r.integral(ub, ua)
	}
	return quad.Fixed(func(u float64) float64 { return r.at(u, 0) }, ua, ub, quadraturePoints, nil, 0)
}

func (r *rational) normalizer() float64 { return r.norm }

// bounds puts the pole of 1/w at u = 1+1/τ.
func (r *rational) bounds() (float64, float64) { return math.Inf(-1), 1 + 1/r.tau }

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

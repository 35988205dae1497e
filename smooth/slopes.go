package smooth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MonotoneSlopes returns knot slopes for a Hermite fit of (x, y) that never
// overshoots the data.
//
// The starting point is the natural cubic spline's slopes (minimum
// curvature). Each interior slope is then clamped in magnitude into
// [harmonic, min(arithmetic, 3·min|d|)] of the adjacent secants d and zeroed
// where the secants disagree in sign or vanish. End slopes are zeroed when they
// disagree with the end secant and capped at three times it.
func MonotoneSlopes(x, y []float64) ([]float64, error) {
	n := len(x)
	if n < 2 || len(y) != n {
		return nil, fmt.Errorf("MonotoneSlopes: %w: %d abscissae, %d values", ErrInvalidArgument, n, len(y))
	}
	h := make([]float64, n-1)
	d := make([]float64, n-1)
	for i := 0; i+1 < n; i++ {
		h[i] = x[i+1] - x[i]
		if !(h[i] > 0) {
			return nil, fmt.Errorf("MonotoneSlopes: %w: abscissae not increasing at %d", ErrInvalidArgument, i+1)
		}
		d[i] = (y[i+1] - y[i]) / h[i]
	}

	m, err := naturalSlopes(h, d)
	if err != nil {
		return nil, err
	}

	for i := 1; i+1 < n; i++ {
		a, b := d[i-1], d[i]
		if a == 0 || b == 0 || math.Signbit(a) != math.Signbit(b) {
			m[i] = 0
			continue
		}
		aa, bb := math.Abs(a), math.Abs(b)
		harmonic := 2 * aa * bb / (aa + bb)
		upper := math.Min(0.5*(aa+bb), 3*math.Min(aa, bb))
		mag := math.Abs(m[i])
		if math.Signbit(m[i]) != math.Signbit(a) {
			mag = 0
		}
		m[i] = math.Copysign(math.Min(math.Max(mag, harmonic), upper), a)
	}
	m[0] = clampEnd(m[0], d[0])
	m[n-1] = clampEnd(m[n-1], d[n-2])
	return m, nil
}

func clampEnd(m, d float64) float64 {
	if d == 0 || m == 0 || math.Signbit(m) != math.Signbit(d) {
		return 0
	}
	if math.Abs(m) > 3*math.Abs(d) {
		return 3 * d
	}
	return m
}

// naturalSlopes solves the natural cubic spline slope equations
//
//	2m₀ + m₁ = 3d₀
//	m_{i-1}/h_{i-1} + 2(1/h_{i-1} + 1/h_i)m_i + m_{i+1}/h_i = 3(d_{i-1}/h_{i-1} + d_i/h_i)
//	m_{n-2} + 2m_{n-1} = 3d_{n-2}
func naturalSlopes(h, d []float64) ([]float64, error) {
	n := len(h) + 1
	a := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)

	a.Set(0, 0, 2)
	a.Set(0, 1, 1)
	rhs.SetVec(0, 3*d[0])
	for i := 1; i+1 < n; i++ {
		l, r := 1/h[i-1], 1/h[i]
		a.Set(i, i-1, l)
		a.Set(i, i, 2*(l+r))
		a.Set(i, i+1, r)
		rhs.SetVec(i, 3*(d[i-1]*l+d[i]*r))
	}
	a.Set(n-1, n-2, 1)
	a.Set(n-1, n-1, 2)
	rhs.SetVec(n-1, 3*d[n-2])

	var m mat.VecDense
	if err := m.SolveVec(a, rhs); err != nil {
		return nil, fmt.Errorf("MonotoneSlopes: natural spline solve: %w", err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = m.AtVec(i)
	}
	return out, nil
}

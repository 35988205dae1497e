package smooth_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/smooth"
	"github.com/meenmo/curvecal/spline"
)

func cubicSet(t *testing.T) basis.Set {
	t.Helper()
	set, err := basis.NewPolynomial(3)
	if err != nil {
		t.Fatalf("NewPolynomial: %v", err)
	}
	return set
}

// discount returns a cubic Hermite stretch through D(x) = exp(-0.02x - 0.001x²).
func discount(t *testing.T, knots []float64) *spline.Stretch {
	t.Helper()
	s, err := spline.New(knots, []basis.Set{cubicSet(t)}, spline.Natural, 1)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	values := make([]float64, len(knots))
	slopes := make([]float64, len(knots))
	for i, x := range knots {
		g := 0.02*x + 0.001*x*x
		values[i] = math.Exp(-g)
		slopes[i] = -(0.02 + 0.002*x) * values[i]
	}
	if err := s.FitHermite(values, slopes); err != nil {
		t.Fatalf("FitHermite: %v", err)
	}
	return s
}

func TestMonotoneSlopesLinearData(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 3, 4, 7}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2 - 0.5*x[i]
	}
	m, err := smooth.MonotoneSlopes(x, y)
	if err != nil {
		t.Fatalf("MonotoneSlopes: %v", err)
	}
	for i, v := range m {
		if math.Abs(v+0.5) > 1e-12 {
			t.Fatalf("slope %d: got %.12f want -0.5", i, v)
		}
	}
}

func TestMonotoneSlopesFlattenExtrema(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 1, 0.5, 0.5, 2}
	m, err := smooth.MonotoneSlopes(x, y)
	if err != nil {
		t.Fatalf("MonotoneSlopes: %v", err)
	}
	for _, i := range []int{1, 2, 3} {
		if m[i] != 0 {
			t.Fatalf("slope %d at a local extremum or flat: got %.12f", i, m[i])
		}
	}
	if _, err := smooth.MonotoneSlopes([]float64{0, 0}, []float64{1, 2}); !errors.Is(err, smooth.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestMonotoneDataStaysMonotone(t *testing.T) {
	t.Parallel()

	x := []float64{0, 0.5, 1, 2, 5, 10}
	y := []float64{0, 0.1, 0.9, 1.0, 1.01, 3}
	m, err := smooth.MonotoneSlopes(x, y)
	if err != nil {
		t.Fatalf("MonotoneSlopes: %v", err)
	}
	s, err := spline.New(x, []basis.Set{cubicSet(t)}, spline.Natural, 1)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	if err := s.FitHermite(y, m); err != nil {
		t.Fatalf("FitHermite: %v", err)
	}
	prev := math.Inf(-1)
	for k := 0; k <= 2000; k++ {
		v, err := s.Evaluate(10 * float64(k) / 2000)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if v < prev-1e-12 {
			t.Fatalf("not monotone at sample %d: %.12f after %.12f", k, v, prev)
		}
		prev = v
	}
}

func TestSmoothReproducesKnots(t *testing.T) {
	t.Parallel()

	knots := []float64{0, 1, 2, 3, 5}
	base := discount(t, knots)

	for _, metric := range []smooth.Metric{smooth.ZeroRate{}, smooth.LogDiscount{}, smooth.DiscountFactor{}} {
		sm, err := smooth.Smooth(base, metric, cubicSet(t), 1e-12)
		if err != nil {
			t.Fatalf("%s: Smooth: %v", metric.Name(), err)
		}
		for _, x := range knots {
			want, _ := base.Evaluate(x)
			got, err := sm.Evaluate(x)
			if err != nil {
				t.Fatalf("%s: Evaluate(%v): %v", metric.Name(), x, err)
			}
			if math.Abs(got-want) > 1e-12 {
				t.Fatalf("%s: D(%v) got %.12f want %.12f", metric.Name(), x, got, want)
			}
		}
		// Between knots the smoothed discount curve stays close to the input.
		got, _ := sm.Evaluate(4)
		want, _ := base.Evaluate(4)
		if math.Abs(got-want) > 1e-3 {
			t.Fatalf("%s: D(4) got %.12f want %.12f", metric.Name(), got, want)
		}
	}
}

func TestSmoothIsIdempotent(t *testing.T) {
	t.Parallel()

	base := discount(t, []float64{0, 1, 2, 3, 5})
	once, err := smooth.Smooth(base, smooth.ZeroRate{}, cubicSet(t), 1e-10)
	if err != nil {
		t.Fatalf("first Smooth: %v", err)
	}
	twice, err := smooth.Smooth(once, smooth.ZeroRate{}, cubicSet(t), 1e-10)
	if err != nil {
		t.Fatalf("second Smooth: %v", err)
	}
	for k := 0; k <= 100; k++ {
		x := 5 * float64(k) / 100
		a, _ := once.Evaluate(x)
		b, _ := twice.Evaluate(x)
		if math.Abs(a-b) > 1e-12 {
			t.Fatalf("x=%v: once %.12f twice %.12f", x, a, b)
		}
	}
}

func TestSmoothToleranceOnCoarseKnots(t *testing.T) {
	t.Parallel()

	base := discount(t, []float64{0, 1, 2, 3, 5})
	coarse := smooth.WithKnots([]float64{0, 5})

	_, err := smooth.Smooth(base, smooth.DiscountFactor{}, cubicSet(t), 1e-12, coarse)
	if !errors.Is(err, smooth.ErrSmoothingToleranceExceeded) {
		t.Fatalf("expected ErrSmoothingToleranceExceeded, got %v", err)
	}
	sm, err := smooth.Smooth(base, smooth.DiscountFactor{}, cubicSet(t), 0.05, coarse)
	if err != nil {
		t.Fatalf("loose tolerance: %v", err)
	}
	if r := sm.Residuals(); r[0] > 1e-12 || r[4] > 1e-12 {
		t.Fatalf("fit knots should be exact: %v", r)
	}
}

func TestZeroRateLatentDerivatives(t *testing.T) {
	t.Parallel()

	// A flat 3% zero rate is D = exp(-0.03x).
	for _, x := range []float64{0, 0.5, 4} {
		got, err := smooth.ZeroRate{}.Latent(x, [3]float64{0.03, 0, 0})
		if err != nil {
			t.Fatalf("Latent: %v", err)
		}
		d := math.Exp(-0.03 * x)
		want := [3]float64{d, -0.03 * d, 0.0009 * d}
		for k := range want {
			if math.Abs(got[k]-want[k]) > 1e-15 {
				t.Fatalf("x=%v order %d: got %.15f want %.15f", x, k, got[k], want[k])
			}
		}
	}

	base := discount(t, []float64{0, 2})
	z, err := smooth.ZeroRate{}.Value(base, 0)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if math.Abs(z-0.02) > 1e-12 {
		t.Fatalf("instantaneous rate at 0: got %.12f want 0.02", z)
	}
}

func TestSmoothedDerivativesMatchFiniteDifferences(t *testing.T) {
	t.Parallel()

	base := discount(t, []float64{0.5, 1, 2, 3, 5})
	sm, err := smooth.Smooth(base, smooth.ZeroRate{}, cubicSet(t), 1e-10)
	if err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	const h = 1e-5
	for _, x := range []float64{0.8, 1.7, 4.2} {
		for order := 1; order <= 2; order++ {
			up, _ := sm.Derivative(x+h, order-1)
			dn, _ := sm.Derivative(x-h, order-1)
			fd := (up - dn) / (2 * h)
			got, err := sm.Derivative(x, order)
			if err != nil {
				t.Fatalf("Derivative: %v", err)
			}
			if math.Abs(got-fd) > 1e-6 {
				t.Fatalf("x=%v order %d: got %.12f fd %.12f", x, order, got, fd)
			}
		}
	}
	if _, err := sm.Derivative(1, 3); !errors.Is(err, smooth.ErrInvalidArgument) {
		t.Fatalf("order 3: expected ErrInvalidArgument, got %v", err)
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"zero-rate": "zero-rate", "df": "discount-factor", "log-discount": "log-discount"} {
		m, err := smooth.ParseMetric(in)
		if err != nil {
			t.Fatalf("ParseMetric(%q): %v", in, err)
		}
		if m.Name() != want {
			t.Fatalf("ParseMetric(%q): got %s", in, m.Name())
		}
	}
	if _, err := smooth.ParseMetric("vol"); !errors.Is(err, smooth.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestZeroRateMeasuresTimeFromAnchor(t *testing.T) {
	t.Parallel()

	// Flat 3% from an anchor at 1.
	knots := []float64{1, 2, 3, 5}
	base, err := spline.New(knots, []basis.Set{cubicSet(t)}, spline.Natural, 1)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	values := make([]float64, len(knots))
	slopes := make([]float64, len(knots))
	for i, x := range knots {
		values[i] = math.Exp(-0.03 * (x - 1))
		slopes[i] = -0.03 * values[i]
	}
	if err := base.FitHermite(values, slopes); err != nil {
		t.Fatalf("FitHermite: %v", err)
	}

	metric := smooth.WithAnchor(smooth.ZeroRate{}, 1)
	for _, x := range knots {
		z, err := metric.Value(base, x)
		if err != nil {
			t.Fatalf("Value(%v): %v", x, err)
		}
		if math.Abs(z-0.03) > 1e-12 {
			t.Fatalf("zero rate at %v: got %.12f want 0.03", x, z)
		}
	}
	if z, _ := (smooth.ZeroRate{}).Value(base, 3); math.Abs(z-0.02) > 1e-12 {
		t.Fatalf("unanchored zero rate at 3: got %.12f want 0.02", z)
	}
	if m := smooth.WithAnchor(smooth.LogDiscount{}, 1); m != (smooth.LogDiscount{}) {
		t.Fatalf("WithAnchor changed %v", m)
	}

	got, err := metric.Latent(3, [3]float64{0.03, 0, 0})
	if err != nil {
		t.Fatalf("Latent: %v", err)
	}
	d := math.Exp(-0.06)
	for k, want := range [3]float64{d, -0.03 * d, 0.0009 * d} {
		if math.Abs(got[k]-want) > 1e-15 {
			t.Fatalf("latent order %d: got %.15f want %.15f", k, got[k], want)
		}
	}

	sm, err := smooth.Smooth(base, metric, cubicSet(t), 1e-10)
	if err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	for i, x := range knots {
		v, err := sm.Evaluate(x)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", x, err)
		}
		if math.Abs(v-values[i]) > 1e-10 {
			t.Fatalf("D(%v): got %.12f want %.12f", x, v, values[i])
		}
	}
}

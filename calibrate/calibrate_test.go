package calibrate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/instrument"
	"github.com/meenmo/curvecal/rootfind"
	"github.com/meenmo/curvecal/spline"
)

type flat struct{ rate float64 }

func (f flat) Evaluate(x float64) (float64, error) { return math.Exp(-f.rate * x), nil }
func (f flat) Derivative(x float64, order int) (float64, error) {
	return math.Pow(-f.rate, float64(order)) * math.Exp(-f.rate*x), nil
}
func (f flat) Domain() (float64, float64) { return 0, math.Inf(1) }

// opaque hides ResponseSensitivity.
type opaque struct{ calibrate.Instrument }

// constant never reaches its quote.
type constant struct{ maturity float64 }

func (c constant) Name() string      { return "CONST" }
func (c constant) Maturity() float64 { return c.maturity }
func (c constant) Measure(spline.Curve, string) (float64, error) {
	return 1, nil
}

func tight() rootfind.Convergence {
	conv := rootfind.DefaultConvergence()
	conv.RelativeFactor = 1e-12
	conv.AbsoluteFloor = 1e-14
	return conv
}

func zeroBond(t *testing.T, name string, maturity, price float64) calibrate.Binding {
	t.Helper()
	z, err := instrument.NewZeroBond(name, maturity)
	if err != nil {
		t.Fatalf("NewZeroBond: %v", err)
	}
	return calibrate.Binding{Instrument: z, Measure: instrument.MeasureDiscountFactor, Quote: price}
}

// swapCurve quotes a 6M deposit and 1Y..7Y annual swaps off a flat curve.
func swapCurve(t *testing.T, rate float64) []calibrate.Binding {
	t.Helper()
	market := flat{rate: rate}
	dep, err := instrument.NewDeposit("DEP6M", 0, 0.5)
	if err != nil {
		t.Fatalf("NewDeposit: %v", err)
	}
	insts := []calibrate.Instrument{dep}
	measures := []string{instrument.MeasureRate}
	for _, y := range []float64{1, 2, 3, 5, 7} {
		sw, err := instrument.NewSwap("OIS", 0, y, instrument.AnnualFixed)
		if err != nil {
			t.Fatalf("NewSwap: %v", err)
		}
		insts = append(insts, sw)
		measures = append(measures, instrument.MeasureSwapRate)
	}
	out := make([]calibrate.Binding, len(insts))
	for i, inst := range insts {
		q, err := inst.Measure(market, measures[i])
		if err != nil {
			t.Fatalf("quote %d: %v", i, err)
		}
		out[i] = calibrate.Binding{Instrument: inst, Measure: measures[i], Quote: q}
	}
	return out
}

func mustSet(t *testing.T, family basis.Family, degree int, tension float64) basis.Set {
	t.Helper()
	set, err := basis.New(family, degree, tension)
	if err != nil {
		t.Fatalf("basis.New: %v", err)
	}
	return set
}

func TestLinearZeroBondsEndToEnd(t *testing.T) {
	t.Parallel()

	bindings := []calibrate.Binding{
		zeroBond(t, "ZB3", 3, 0.94),
		zeroBond(t, "ZB2", 2, 0.97),
	}
	skel, err := calibrate.Skeleton(1, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	res, err := calibrate.Calibrate(skel, bindings, calibrate.WithLeftValue(0.99), calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if skel.Calibrated() {
		t.Fatalf("skeleton was modified")
	}

	s := res.Stretch()
	for _, tc := range []struct{ x, want float64 }{{1, 0.99}, {1.5, 0.98}, {2, 0.97}, {2.5, 0.955}, {3, 0.94}} {
		got, err := s.Evaluate(tc.x)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", tc.x, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("D(%v) = %.12f want %.12f", tc.x, got, tc.want)
		}
	}

	anchorBond, _ := instrument.NewZeroBond("ZB1", 1)
	rate, err := anchorBond.Measure(s, instrument.MeasureRate)
	if err != nil {
		t.Fatalf("zero rate: %v", err)
	}
	if math.Abs(rate-(-math.Log(0.99))) > 1e-12 || math.Abs(rate-0.01005) > 1e-4 {
		t.Fatalf("zero rate at 1 = %.12f", rate)
	}

	q, err := res.QuoteJacobian()
	if err != nil {
		t.Fatalf("QuoteJacobian: %v", err)
	}
	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			want := 0.0
			if i == k {
				want = 1
			}
			if math.Abs(q.At(i, k)-want) > 1e-12 {
				t.Fatalf("∂p%d/∂q%d = %.12f want %.12f", i, k, q.At(i, k), want)
			}
		}
	}

	jac, err := res.Jacobian([]float64{1.5, 2.5})
	if err != nil {
		t.Fatalf("Jacobian: %v", err)
	}
	want := [][]float64{{0.5, 0}, {0.5, 0.5}}
	for i := range want {
		for k := range want[i] {
			if math.Abs(jac.At(i, k)-want[i][k]) > 1e-12 {
				t.Fatalf("J[%d][%d] = %.12f want %.12f", i, k, jac.At(i, k), want[i][k])
			}
		}
	}

	reports := res.Reports()
	if len(reports) != 2 || reports[0].Instrument != "ZB2" || reports[1].Instrument != "ZB3" {
		t.Fatalf("reports not in maturity order: %+v", reports)
	}
}

func calibrations(t *testing.T) []struct {
	name       string
	set        basis.Set
	boundary   spline.Boundary
	continuity int
} {
	return []struct {
		name       string
		set        basis.Set
		boundary   spline.Boundary
		continuity int
	}{
		{"linear", mustSet(t, basis.Polynomial, 1, 0), spline.Natural, 0},
		{"quadratic natural", mustSet(t, basis.Polynomial, 2, 0), spline.Natural, 1},
		{"quadratic financial", mustSet(t, basis.Polynomial, 2, 0), spline.Financial, 1},
		{"cubic natural", mustSet(t, basis.Polynomial, 3, 0), spline.Natural, 1},
		{"cubic financial", mustSet(t, basis.Polynomial, 3, 0), spline.Financial, 1},
		{"hyperbolic", mustSet(t, basis.HyperbolicTension, 3, 1), spline.Natural, 1},
		{"rational", mustSet(t, basis.RationalTension, 3, 1), spline.Financial, 1},
	}
}

func TestCalibrationRepricesEveryQuote(t *testing.T) {
	t.Parallel()

	bindings := swapCurve(t, 0.03)
	for _, tc := range calibrations(t) {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			skel, err := calibrate.Skeleton(0, bindings, []basis.Set{tc.set}, tc.boundary, tc.continuity)
			if err != nil {
				t.Fatalf("Skeleton: %v", err)
			}
			res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
			if err != nil {
				t.Fatalf("Calibrate: %v", err)
			}
			residuals, err := res.Residuals()
			if err != nil {
				t.Fatalf("Residuals: %v", err)
			}
			for i, r := range residuals {
				if math.Abs(r) > 1e-12 {
					t.Fatalf("binding %d residual %.3e", i, r)
				}
			}
			if err := res.Stretch().CheckContinuity(1e-9); err != nil {
				t.Fatalf("CheckContinuity: %v", err)
			}
			if d0, _ := res.Stretch().Evaluate(0); math.Abs(d0-1) > 1e-15 {
				t.Fatalf("anchor value %.12f", d0)
			}
		})
	}
}

func TestJacobianMatchesBumpAndRecalibrate(t *testing.T) {
	t.Parallel()

	bindings := swapCurve(t, 0.025)
	ordinates := []float64{0.25, 0.5, 0.8, 1.5, 2, 4, 6.5, 7}
	for _, tc := range calibrations(t) {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			skel, err := calibrate.Skeleton(0, bindings, []basis.Set{tc.set}, tc.boundary, tc.continuity)
			if err != nil {
				t.Fatalf("Skeleton: %v", err)
			}
			res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
			if err != nil {
				t.Fatalf("Calibrate: %v", err)
			}
			jac, err := res.Jacobian(ordinates)
			if err != nil {
				t.Fatalf("Jacobian: %v", err)
			}

			const h = 1e-5
			for k := range bindings {
				up := bump(t, skel, bindings, k, h)
				dn := bump(t, skel, bindings, k, -h)
				for i, x := range ordinates {
					vu, _ := up.Evaluate(x)
					vd, _ := dn.Evaluate(x)
					fd := (vu - vd) / (2 * h)
					if math.Abs(fd-jac.At(i, k)) > 1e-6*math.Max(1, math.Abs(fd)) {
						t.Fatalf("∂D(%v)/∂q%d: analytic %.12f bump %.12f", x, k, jac.At(i, k), fd)
					}
				}
			}
		})
	}
}

func bump(t *testing.T, skel *spline.Stretch, bindings []calibrate.Binding, k int, h float64) *spline.Stretch {
	t.Helper()
	shifted := append([]calibrate.Binding(nil), bindings...)
	shifted[k].Quote += h
	res, err := calibrate.Calibrate(skel, shifted, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate(bump %d): %v", k, err)
	}
	return res.Stretch()
}

func TestForwardAndDerivativeOutputs(t *testing.T) {
	t.Parallel()

	bindings := swapCurve(t, 0.02)
	set := mustSet(t, basis.Polynomial, 3, 0)
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{set}, spline.Natural, 1)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	outs := []calibrate.Output{calibrate.InstantaneousForward(1.7), calibrate.Derivative(3.3, 1)}
	jac, err := res.JacobianOf(outs)
	if err != nil {
		t.Fatalf("JacobianOf: %v", err)
	}

	forward := func(s *spline.Stretch, x float64) float64 {
		d, _ := s.Evaluate(x)
		d1, _ := s.Derivative(x, 1)
		return -d1 / d
	}
	slope := func(s *spline.Stretch, x float64) float64 {
		d1, _ := s.Derivative(x, 1)
		return d1
	}
	const h = 1e-5
	for k := range bindings {
		up := bump(t, skel, bindings, k, h)
		dn := bump(t, skel, bindings, k, -h)
		fdFwd := (forward(up, 1.7) - forward(dn, 1.7)) / (2 * h)
		fdSlope := (slope(up, 3.3) - slope(dn, 3.3)) / (2 * h)
		if math.Abs(fdFwd-jac.At(0, k)) > 1e-5*math.Max(1, math.Abs(fdFwd)) {
			t.Fatalf("∂f(1.7)/∂q%d: analytic %.12f bump %.12f", k, jac.At(0, k), fdFwd)
		}
		if math.Abs(fdSlope-jac.At(1, k)) > 1e-5*math.Max(1, math.Abs(fdSlope)) {
			t.Fatalf("∂D'(3.3)/∂q%d: analytic %.12f bump %.12f", k, jac.At(1, k), fdSlope)
		}
	}
}

func TestFailureLeavesSkeletonUntouched(t *testing.T) {
	t.Parallel()

	bindings := []calibrate.Binding{
		zeroBond(t, "ZB1", 1, 0.98),
		{Instrument: constant{maturity: 2}, Measure: "x", Quote: 0.5},
	}
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	res, err := calibrate.Calibrate(skel, bindings)
	if res != nil {
		t.Fatalf("failed calibration returned a result")
	}
	var failure *calibrate.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if failure.Index != 1 || failure.Instrument != "CONST" {
		t.Fatalf("failure names segment %d (%s)", failure.Index, failure.Instrument)
	}
	if !errors.Is(err, rootfind.ErrNoBracketFound) {
		t.Fatalf("expected ErrNoBracketFound, got %v", err)
	}
	for i, seg := range skel.Segments() {
		if seg.Calibrated() {
			t.Fatalf("skeleton segment %d frozen", i)
		}
	}
}

func TestJacobianUnavailableWithoutSensitivities(t *testing.T) {
	t.Parallel()

	zb := zeroBond(t, "ZB1", 1, 0.98)
	hidden := zeroBond(t, "ZB2", 2, 0.95)
	hidden.Instrument = opaque{hidden.Instrument}
	bindings := []calibrate.Binding{zb, hidden}

	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if d, _ := res.Stretch().Evaluate(2); math.Abs(d-0.95) > 1e-12 {
		t.Fatalf("D(2) = %.12f", d)
	}
	if _, err := res.Jacobian([]float64{1.5}); !errors.Is(err, calibrate.ErrJacobianUnavailable) {
		t.Fatalf("Jacobian: %v", err)
	}
	if _, err := res.QuoteJacobian(); !errors.Is(err, calibrate.ErrJacobianUnavailable) {
		t.Fatalf("QuoteJacobian: %v", err)
	}
}

func TestEqualMaturityLastBindingWins(t *testing.T) {
	t.Parallel()

	bindings := []calibrate.Binding{
		zeroBond(t, "ZB2a", 2, 0.97),
		zeroBond(t, "ZB1", 1, 0.99),
		zeroBond(t, "ZB2b", 2, 0.96),
	}
	sorted := calibrate.SortBindings(bindings)
	if len(sorted) != 2 || sorted[1].Instrument.Name() != "ZB2b" {
		t.Fatalf("SortBindings kept %d bindings", len(sorted))
	}
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	if got := skel.Knots(); len(got) != 3 || got[2] != 2 {
		t.Fatalf("knots %v", got)
	}
	res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if d, _ := res.Stretch().Evaluate(2); math.Abs(d-0.96) > 1e-12 {
		t.Fatalf("D(2) = %.12f want 0.96", d)
	}
}

func TestCalibrateRejectsMismatchedInputs(t *testing.T) {
	t.Parallel()

	lin := []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}
	two := []calibrate.Binding{zeroBond(t, "ZB1", 1, 0.99), zeroBond(t, "ZB2", 2, 0.98)}

	wide, _ := spline.New([]float64{0, 1, 2, 3}, lin, spline.Natural, 0)
	if _, err := calibrate.Calibrate(wide, two); !errors.Is(err, calibrate.ErrInvalidArgument) {
		t.Fatalf("count mismatch: %v", err)
	}

	shifted, _ := spline.New([]float64{0, 0.5, 2}, lin, spline.Natural, 0)
	if _, err := calibrate.Calibrate(shifted, two); !errors.Is(err, calibrate.ErrInvalidArgument) {
		t.Fatalf("maturity outside segment: %v", err)
	}

	bad := append([]calibrate.Binding(nil), two...)
	bad[0].Quote = math.NaN()
	skel, _ := calibrate.Skeleton(0, two, lin, spline.Natural, 0)
	if _, err := calibrate.Calibrate(skel, bad); !errors.Is(err, calibrate.ErrInvalidArgument) {
		t.Fatalf("NaN quote: %v", err)
	}

	res, err := calibrate.Calibrate(skel, two)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if _, err := calibrate.Calibrate(res.Stretch(), two); !errors.Is(err, spline.ErrAlreadyCalibrated) {
		t.Fatalf("recalibration: %v", err)
	}

	if _, err := calibrate.Skeleton(1, two, lin, spline.Natural, 0); !errors.Is(err, calibrate.ErrInvalidArgument) {
		t.Fatalf("maturity at anchor: %v", err)
	}
}

func TestMethodsAgree(t *testing.T) {
	t.Parallel()

	bindings := swapCurve(t, 0.035)
	set := mustSet(t, basis.HyperbolicTension, 3, 2)
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{set}, spline.Natural, 1)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	ref, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate(brent): %v", err)
	}
	for _, m := range []rootfind.Method{rootfind.Bisection, rootfind.FalsePosition, rootfind.Ridder, rootfind.Newton} {
		res, err := calibrate.Calibrate(skel, bindings, calibrate.WithMethod(m), calibrate.WithConvergence(tight()))
		if err != nil {
			t.Fatalf("Calibrate(%s): %v", m, err)
		}
		for _, x := range []float64{0.3, 1.2, 4.4, 7} {
			a, _ := ref.Stretch().Evaluate(x)
			b, _ := res.Stretch().Evaluate(x)
			if math.Abs(a-b) > 1e-10 {
				t.Fatalf("%s: D(%v) = %.12f, brent %.12f", m, x, b, a)
			}
		}
	}
}

func TestLongZeroRateAfterShortOne(t *testing.T) {
	t.Parallel()

	var bindings []calibrate.Binding
	for _, m := range []float64{1, 30} {
		z, err := instrument.NewZeroBond("ZB", m)
		if err != nil {
			t.Fatalf("NewZeroBond: %v", err)
		}
		bindings = append(bindings, calibrate.Binding{Instrument: z, Measure: instrument.MeasureRate, Quote: 0.03})
	}
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	// The bracket search overshoots D(30) below zero before it brackets e^-0.9.
	res, err := calibrate.Calibrate(skel, bindings, calibrate.WithConvergence(tight()))
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	for _, m := range []float64{1, 30} {
		got, err := res.Stretch().Evaluate(m)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", m, err)
		}
		if want := math.Exp(-0.03 * m); math.Abs(got-want) > 1e-10 {
			t.Fatalf("D(%v) = %.12f want %.12f", m, got, want)
		}
	}
}

func TestFromConfigRejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	bindings := []calibrate.Binding{zeroBond(t, "ZB1", 1, 0.98)}
	skel, err := calibrate.Skeleton(0, bindings, []basis.Set{mustSet(t, basis.Polynomial, 1, 0)}, spline.Natural, 0)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	cfg := config.Default()
	cfg.Solver.Method = "bretn"
	if _, err := calibrate.Calibrate(skel, bindings, calibrate.FromConfig(cfg)); !errors.Is(err, rootfind.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	cfg.Solver.Method = "ridder"
	if _, err := calibrate.Calibrate(skel, bindings, calibrate.FromConfig(cfg)); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
}

package rootfind_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/curvecal/rootfind"
)

const cubicRoot = 2.0945514815423265

func cubic(x float64) (float64, error) { return x*x*x - 2*x - 5, nil }

type cubicWithSlope struct{}

func (cubicWithSlope) Evaluate(x float64) (float64, error)   { return cubic(x) }
func (cubicWithSlope) Derivative(x float64) (float64, error) { return 3*x*x - 2, nil }

func TestMethodsConvergeOnCubic(t *testing.T) {
	t.Parallel()

	methods := []rootfind.Method{
		rootfind.Bisection,
		rootfind.FalsePosition,
		rootfind.Quadratic,
		rootfind.InverseQuadratic,
		rootfind.Ridder,
		rootfind.Brent,
		rootfind.Newton,
	}
	for _, m := range methods {
		m := m
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			conv := rootfind.DefaultConvergence()
			solver, err := rootfind.New(m, conv)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(2))
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if res.State != rootfind.Converged {
				t.Fatalf("state %v", res.State)
			}
			// |f(2)| = 1, so the residual tolerance is 1e-10.
			if math.Abs(res.Value) >= 1e-10 {
				t.Fatalf("residual %.3e above tolerance", res.Value)
			}
			if math.Abs(res.Root-cubicRoot) > 1e-9 {
				t.Fatalf("root: got %.12f want %.12f", res.Root, cubicRoot)
			}
			if res.Iterations == 0 || res.Evaluations < res.Iterations {
				t.Fatalf("counters: %d iterations, %d evaluations", res.Iterations, res.Evaluations)
			}
		})
	}
}

func TestFastMethodsBeatBisection(t *testing.T) {
	t.Parallel()

	iters := map[rootfind.Method]int{}
	for _, m := range []rootfind.Method{rootfind.Bisection, rootfind.Brent, rootfind.Ridder} {
		solver, _ := rootfind.NewBracketing(m, rootfind.DefaultConvergence())
		res, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(2))
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		iters[m] = res.Iterations
	}
	if iters[rootfind.Brent] >= iters[rootfind.Bisection] || iters[rootfind.Ridder] >= iters[rootfind.Bisection] {
		t.Fatalf("iterations: %v", iters)
	}
}

func TestGoalIsSubtracted(t *testing.T) {
	t.Parallel()

	solver, _ := rootfind.NewBracketing(rootfind.Brent, rootfind.DefaultConvergence())
	res, err := solver.Solve(rootfind.ObjectiveFunc(func(x float64) (float64, error) { return math.Exp(x), nil }), 3, rootfind.DefaultInitialization(0))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.Root-math.Log(3)) > 1e-9 {
		t.Fatalf("root: got %.12f want %.12f", res.Root, math.Log(3))
	}
	if math.Abs(res.Value-3) > 1e-9 {
		t.Fatalf("value: got %.12f want 3", res.Value)
	}
}

func TestNonFiniteTrialsBackOff(t *testing.T) {
	t.Parallel()

	log := rootfind.ObjectiveFunc(func(x float64) (float64, error) { return math.Log(x), nil })
	solver, _ := rootfind.NewBracketing(rootfind.Ridder, rootfind.DefaultConvergence())

	// Left probes run into negative x (NaN) while the right side finds e.
	res, err := solver.Solve(log, 1, rootfind.DefaultInitialization(1))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.Root-math.E) > 1e-9 {
		t.Fatalf("root: got %.12f want %.12f", res.Root, math.E)
	}

	// The doubling step overshoots e^-3 into NaN; halving recovers it.
	res, err = solver.Solve(log, -3, rootfind.DefaultInitialization(1))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.Root-math.Exp(-3)) > 1e-9 {
		t.Fatalf("root: got %.12f want %.12f", res.Root, math.Exp(-3))
	}
}

func TestObjectiveErrorsShrinkTheStep(t *testing.T) {
	t.Parallel()

	outside := errors.New("outside domain")
	obj := rootfind.ObjectiveFunc(func(x float64) (float64, error) {
		if x > 1.02 {
			return 0, outside
		}
		return x - 0.95, nil
	})
	init := rootfind.DefaultInitialization(0)
	init.Step = 0.1
	// Right side: 0.1, 0.3, 0.7, then 1.5 fails and the step halves
	// until the root near 1 is bracketed.
	for _, m := range []rootfind.Method{rootfind.Bisection, rootfind.Brent} {
		solver, _ := rootfind.NewBracketing(m, rootfind.DefaultConvergence())
		res, err := solver.Solve(obj, 0, init)
		if err != nil {
			t.Fatalf("%v: Solve: %v", m, err)
		}
		if math.Abs(res.Root-0.95) > 1e-9 {
			t.Fatalf("%v: root: got %.12f want 0.95", m, res.Root)
		}
	}
}

func TestNoBracketForPositiveFunction(t *testing.T) {
	t.Parallel()

	solver, _ := rootfind.NewBracketing(rootfind.Bisection, rootfind.DefaultConvergence())
	init := rootfind.DefaultInitialization(0)
	init.MaxExpansions = 10
	_, err := solver.Solve(rootfind.ObjectiveFunc(func(x float64) (float64, error) { return x*x + 1, nil }), 0, init)
	if !errors.Is(err, rootfind.ErrNoBracketFound) {
		t.Fatalf("expected ErrNoBracketFound, got %v", err)
	}
}

func TestHardBracket(t *testing.T) {
	t.Parallel()

	solver, _ := rootfind.NewBracketing(rootfind.FalsePosition, rootfind.DefaultConvergence())
	res, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(0).Within(2, 3))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.Root-cubicRoot) > 1e-9 {
		t.Fatalf("root: got %.12f", res.Root)
	}

	_, err = solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(0).Within(3, 4))
	if !errors.Is(err, rootfind.ErrNoBracketFound) {
		t.Fatalf("expected ErrNoBracketFound, got %v", err)
	}
}

func TestIterationBudgetIsReported(t *testing.T) {
	t.Parallel()

	conv := rootfind.DefaultConvergence()
	conv.MaxIterations = 3
	solver, _ := rootfind.NewBracketing(rootfind.Bisection, conv)
	res, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(2))
	if !errors.Is(err, rootfind.ErrNonConvergence) {
		t.Fatalf("expected ErrNonConvergence, got %v", err)
	}
	if res.State != rootfind.Failed || res.Iterations != 3 {
		t.Fatalf("result %+v", res)
	}
}

func TestObjectiveErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("pricing failed")
	calls := 0
	obj := rootfind.ObjectiveFunc(func(x float64) (float64, error) {
		calls++
		if calls > 3 {
			return 0, boom
		}
		return x - 10, nil
	})
	solver, _ := rootfind.NewBracketing(rootfind.Brent, rootfind.DefaultConvergence())
	_, err := solver.Solve(obj, 0, rootfind.DefaultInitialization(0))
	if !errors.Is(err, boom) || !errors.Is(err, rootfind.ErrNoBracketFound) {
		t.Fatalf("expected wrapped objective error, got %v", err)
	}
}

func TestVariateCheck(t *testing.T) {
	t.Parallel()

	conv := rootfind.DefaultConvergence()
	conv.CheckVariate = true
	solver, _ := rootfind.NewBracketing(rootfind.Brent, conv)
	res, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(2))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.Root-cubicRoot) > 1e-11 {
		t.Fatalf("root: got %.15f want %.15f", res.Root, cubicRoot)
	}
}

func TestNewton(t *testing.T) {
	t.Parallel()

	solver, err := rootfind.NewNewton(rootfind.DefaultConvergence())
	if err != nil {
		t.Fatalf("NewNewton: %v", err)
	}

	analytic, err := solver.Solve(cubicWithSlope{}, 0, rootfind.DefaultInitialization(2))
	if err != nil {
		t.Fatalf("analytic: %v", err)
	}
	numeric, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, rootfind.DefaultInitialization(2))
	if err != nil {
		t.Fatalf("numeric: %v", err)
	}
	if math.Abs(analytic.Root-numeric.Root) > 1e-10 {
		t.Fatalf("analytic %.12f vs numeric %.12f", analytic.Root, numeric.Root)
	}
	if numeric.Evaluations <= analytic.Evaluations {
		t.Fatalf("finite differences should cost evaluations: %d vs %d", numeric.Evaluations, analytic.Evaluations)
	}

	flat := rootfind.ObjectiveFunc(func(x float64) (float64, error) { return x*x + 1, nil })
	if _, err := solver.Solve(flat, 0, rootfind.DefaultInitialization(0)); !errors.Is(err, rootfind.ErrNonConvergence) {
		t.Fatalf("zero derivative: expected ErrNonConvergence, got %v", err)
	}

	// The clamp keeps every iterate inside the hard bracket.
	clamped, err := solver.Solve(cubicWithSlope{}, 0, rootfind.DefaultInitialization(10).Within(2, 2.5))
	if err != nil {
		t.Fatalf("clamped: %v", err)
	}
	if math.Abs(clamped.Root-cubicRoot) > 1e-9 {
		t.Fatalf("clamped root %.12f", clamped.Root)
	}
}

func TestConstructorsValidate(t *testing.T) {
	t.Parallel()

	bad := rootfind.DefaultConvergence()
	bad.AbsoluteFloor = 0
	if _, err := rootfind.NewBracketing(rootfind.Brent, bad); !errors.Is(err, rootfind.ErrInvalidArgument) {
		t.Fatalf("zero floor: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := rootfind.NewBracketing(rootfind.Newton, rootfind.DefaultConvergence()); !errors.Is(err, rootfind.ErrInvalidArgument) {
		t.Fatalf("newton as bracketing: expected ErrInvalidArgument, got %v", err)
	}
	solver, _ := rootfind.NewBracketing(rootfind.Brent, rootfind.DefaultConvergence())
	init := rootfind.DefaultInitialization(1)
	init.Expansion = 1
	if _, err := solver.Solve(rootfind.ObjectiveFunc(cubic), 0, init); !errors.Is(err, rootfind.ErrInvalidArgument) {
		t.Fatalf("expansion 1: expected ErrInvalidArgument, got %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for _, m := range []rootfind.Method{rootfind.Bisection, rootfind.FalsePosition, rootfind.Quadratic,
		rootfind.InverseQuadratic, rootfind.Ridder, rootfind.Brent, rootfind.Newton} {
		got, err := rootfind.ParseMethod(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMethod(%q): %v, %v", m.String(), got, err)
		}
	}
	if _, err := rootfind.ParseMethod("secant"); !errors.Is(err, rootfind.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

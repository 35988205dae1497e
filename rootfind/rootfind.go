// Package rootfind solves f(x) = goal for scalar objectives.
//
// Two solver families are provided. Bracketing solvers first search outward
// from a starting point for a sign change and then shrink the bracket with one
// of several update primitives; the Newton solver steps along the analytic or
// finite-difference derivative. Every solver walks the same state machine:
//
//	Initialize → Iterate* → Converged | Failed
//
// Solvers hold configuration only, so a single value may be shared between
// goroutines solving independent objectives.
package rootfind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument is returned for malformed solver settings.
	ErrInvalidArgument = errors.New("rootfind: invalid argument")
	// ErrNoBracketFound is returned when the bracket search sees no sign change
	// within its expansion budget.
	ErrNoBracketFound = errors.New("rootfind: no bracket found")
	// ErrNonConvergence is returned when the iteration budget is exhausted or
	// the update cannot proceed (zero or non-finite derivative).
	ErrNonConvergence = errors.New("rootfind: solver did not converge")
)

// Objective is the function whose root is sought.
type Objective interface {
	Evaluate(x float64) (float64, error)
}

// ObjectiveFunc adapts a plain function to Objective.
type ObjectiveFunc func(x float64) (float64, error)

// Evaluate calls f(x).
func (f ObjectiveFunc) Evaluate(x float64) (float64, error) { return f(x) }

// Differentiable objectives supply an analytic first derivative to Newton.
type Differentiable interface {
	Objective
	Derivative(x float64) (float64, error)
}

// State is a solver state.
type State int

const (
	Initialize State = iota
	Iterate
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Initialize:
		return "initialize"
	case Iterate:
		return "iterate"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result reports the outcome of a solve. A Failed result is returned together
// with the error so callers can log the last iterate.
type Result struct {
	Root        float64
	Value       float64 // f(Root)
	Iterations  int
	Evaluations int
	State       State
	Bracket     [2]float64
}

// Solver finds x with obj(x) = goal, starting from init.
type Solver interface {
	Solve(obj Objective, goal float64, init Initialization) (*Result, error)
}

// Method selects the variate update.
type Method int

const (
	Bisection Method = iota
	FalsePosition
	Quadratic
	InverseQuadratic
	Ridder
	Brent
	Newton
)

func (m Method) String() string {
	switch m {
	case Bisection:
		return "bisection"
	case FalsePosition:
		return "false-position"
	case Quadratic:
		return "quadratic"
	case InverseQuadratic:
		return "inverse-quadratic"
	case Ridder:
		return "ridder"
	case Brent:
		return "brent"
	case Newton:
		return "newton"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Bracketed reports whether m requires a sign-change bracket.
func (m Method) Bracketed() bool { return m >= Bisection && m <= Brent }

// ParseMethod maps a configuration string onto a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bisection":
		return Bisection, nil
	case "false-position", "falseposition", "regula-falsi", "illinois":
		return FalsePosition, nil
	case "quadratic", "muller":
		return Quadratic, nil
	case "inverse-quadratic", "inversequadratic":
		return InverseQuadratic, nil
	case "ridder":
		return Ridder, nil
	case "brent", "":
		return Brent, nil
	case "newton":
		return Newton, nil
	default:
		return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, s)
	}
}

// New returns the solver for method.
func New(method Method, conv Convergence) (Solver, error) {
	if method == Newton {
		return NewNewton(conv)
	}
	return NewBracketing(method, conv)
}

// counter wraps an objective, subtracts the goal and counts evaluations.
type counter struct {
	obj   Objective
	goal  float64
	calls int
}

func (c *counter) eval(x float64) (float64, error) {
	c.calls++
	v, err := c.obj.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return v - c.goal, nil
}

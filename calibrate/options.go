package calibrate

import (
	"fmt"
	"log/slog"

	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/rootfind"
)

type options struct {
	leftValue  float64
	method     rootfind.Method
	conv       rootfind.Convergence
	solver     rootfind.Solver
	initialize func(start float64) rootfind.Initialization
	contTol    float64
	logger     *slog.Logger
	err        error
}

func defaults() options {
	return options{
		leftValue:  1,
		method:     rootfind.Brent,
		conv:       rootfind.DefaultConvergence(),
		initialize: rootfind.DefaultInitialization,
		contTol:    1e-9,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures Calibrate.
type Option func(*options)

// WithLeftValue pins the curve value at the first knot (default 1, the
// discount-factor convention).
func WithLeftValue(v float64) Option {
	return func(o *options) { o.leftValue = v }
}

// WithSolver uses solver for every segment, overriding WithMethod and
// WithConvergence.
func WithSolver(solver rootfind.Solver) Option {
	return func(o *options) { o.solver = solver }
}

// WithMethod selects the root-finding method (default Brent).
func WithMethod(m rootfind.Method) Option {
	return func(o *options) { o.method = m }
}

// WithConvergence sets the root-finding convergence policy.
func WithConvergence(c rootfind.Convergence) Option {
	return func(o *options) { o.conv = c }
}

// WithInitialization sets how each segment's bracket search is placed around
// its initial guess.
func WithInitialization(f func(start float64) rootfind.Initialization) Option {
	return func(o *options) {
		if f != nil {
			o.initialize = f
		}
	}
}

// WithContinuityTolerance sets the relative tolerance of the final
// continuity check.
func WithContinuityTolerance(tol float64) Option {
	return func(o *options) { o.contTol = tol }
}

// WithLogger attaches a logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// FromConfig applies the solver and calibration sections of cfg. An
// unknown solver method makes Calibrate fail.
func FromConfig(cfg config.Config) Option {
	return func(o *options) {
		m, err := cfg.Method()
		if err != nil {
			o.err = fmt.Errorf("FromConfig: %w", err)
			return
		}
		o.method = m
		o.conv = cfg.Convergence()
		o.initialize = cfg.Initialization
		o.leftValue = cfg.Calibration.LeftValue
		if cfg.Calibration.ContinuityTolerance > 0 {
			o.contTol = cfg.Calibration.ContinuityTolerance
		}
	}
}

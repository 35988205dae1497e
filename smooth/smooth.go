// Package smooth re-fits a calibrated curve in a quantification metric (zero
// rate, log discount) with a monotonicity-preserving Hermite stretch.
//
// The smoothed curve evaluates the same latent quantity as its input, so
// smoothing a smoothed curve with the same settings reproduces it.
package smooth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/curvecal/basis"
	"github.com/meenmo/curvecal/spline"
)

var (
	// ErrInvalidArgument is shared with the spline and basis packages.
	ErrInvalidArgument = spline.ErrInvalidArgument
	// ErrSmoothingToleranceExceeded is returned when the smoothed curve misses
	// an input knot's metric value by more than the tolerance.
	ErrSmoothingToleranceExceeded = errors.New("smooth: tolerance exceeded")
)

type options struct {
	logger *slog.Logger
	knots  []float64
	extrap spline.Extrapolation
}

// Option configures Smooth.
type Option func(*options)

// WithLogger attaches a logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKnots fits the smoothed stretch on its own (typically coarser) knots.
// The tolerance is still checked at every input knot.
func WithKnots(knots []float64) Option {
	return func(o *options) { o.knots = append([]float64(nil), knots...) }
}

// WithExtrapolation sets the out-of-domain policy of the smoothed stretch.
func WithExtrapolation(e spline.Extrapolation) Option {
	return func(o *options) { o.extrap = e }
}

// Curve is a smoothed latent curve: a Hermite stretch in metric space read
// back through the metric.
type Curve struct {
	metric  Metric
	stretch *spline.Stretch
	// Residuals holds |smoothed - input| of the metric at each input knot.
	residuals []float64
}

// Smooth samples metric at the knots of curve, fits a Hermite stretch of the
// metric values over set with MonotoneSlopes, and verifies every input knot is
// reproduced within tolerance.
func Smooth(curve spline.Knotted, metric Metric, set basis.Set, tolerance float64, opts ...Option) (*Curve, error) {
	if curve == nil || metric == nil {
		return nil, fmt.Errorf("Smooth: %w: nil curve or metric", ErrInvalidArgument)
	}
	if !(tolerance >= 0) || math.IsInf(tolerance, 0) {
		return nil, fmt.Errorf("Smooth: %w: tolerance %v", ErrInvalidArgument, tolerance)
	}
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	input := curve.Knots()
	targets := make([]float64, len(input))
	for i, x := range input {
		v, err := metric.Value(curve, x)
		if err != nil {
			return nil, fmt.Errorf("Smooth: %s at knot %d: %w", metric.Name(), i, err)
		}
		targets[i] = v
	}

	knots, values := input, targets
	if o.knots != nil {
		knots = o.knots
		values = make([]float64, len(knots))
		for i, x := range knots {
			v, err := metric.Value(curve, x)
			if err != nil {
				return nil, fmt.Errorf("Smooth: %s at fit knot %d: %w", metric.Name(), i, err)
			}
			values[i] = v
		}
	}

	slopes, err := MonotoneSlopes(knots, values)
	if err != nil {
		return nil, fmt.Errorf("Smooth: %w", err)
	}
	stretch, err := spline.New(knots, []basis.Set{set}, spline.Natural, 1, spline.WithExtrapolation(o.extrap))
	if err != nil {
		return nil, fmt.Errorf("Smooth: %w", err)
	}
	if err := stretch.FitHermite(values, slopes); err != nil {
		return nil, fmt.Errorf("Smooth: %w", err)
	}

	out := &Curve{metric: metric, stretch: stretch, residuals: make([]float64, len(input))}
	for i, x := range input {
		got, err := stretch.Evaluate(x)
		if err != nil {
			return nil, fmt.Errorf("Smooth: knot %d: %w", i, err)
		}
		out.residuals[i] = math.Abs(got - targets[i])
	}
	worst := floats.Max(out.residuals)
	if worst > tolerance {
		at := floats.MaxIdx(out.residuals)
		return nil, fmt.Errorf("Smooth: %w: %s at knot %v off by %.3g (tolerance %.3g)",
			ErrSmoothingToleranceExceeded, metric.Name(), input[at], worst, tolerance)
	}
	o.logger.Debug("curve smoothed",
		"metric", metric.Name(),
		"basis", set.Name(),
		"knots", len(knots),
		"max_residual", worst,
	)
	return out, nil
}

// Metric returns the metric the curve was smoothed in.
func (c *Curve) Metric() Metric { return c.metric }

// Stretch returns the metric-space stretch.
func (c *Curve) Stretch() *spline.Stretch { return c.stretch }

// Residuals returns the per-knot metric misfit.
func (c *Curve) Residuals() []float64 { return append([]float64(nil), c.residuals...) }

// Knots returns the smoothed stretch's knots.
func (c *Curve) Knots() []float64 { return c.stretch.Knots() }

// Domain returns the smoothed stretch's domain.
func (c *Curve) Domain() (float64, float64) { return c.stretch.Domain() }

// MetricValue returns the smoothed metric at x.
func (c *Curve) MetricValue(x float64) (float64, error) { return c.stretch.Evaluate(x) }

// Evaluate returns the latent value at x.
func (c *Curve) Evaluate(x float64) (float64, error) { return c.Derivative(x, 0) }

// Derivative returns the latent order-th derivative at x. Orders above 2 are
// available only for the identity metric.
func (c *Curve) Derivative(x float64, order int) (float64, error) {
	if _, ok := c.metric.(DiscountFactor); ok {
		return c.stretch.Derivative(x, order)
	}
	if order < 0 || order > 2 {
		return 0, fmt.Errorf("smooth.Curve: %w: order %d under %s", ErrInvalidArgument, order, c.metric.Name())
	}
	var m [3]float64
	for k := 0; k <= order; k++ {
		v, err := c.stretch.Derivative(x, k)
		if err != nil {
			return 0, err
		}
		m[k] = v
	}
	latent, err := c.metric.Latent(x, m)
	if err != nil {
		return 0, err
	}
	return latent[order], nil
}

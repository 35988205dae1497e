package smooth

import (
	"fmt"
	"math"
	"strings"

	"github.com/meenmo/curvecal/spline"
)

// Metric is a quantification of the latent curve (a discount function) that
// smoothing operates on. Value reads the metric off a latent curve; Latent maps
// metric derivatives of order 0..2 at x back to latent derivatives.
type Metric interface {
	Name() string
	Value(curve spline.Curve, x float64) (float64, error)
	Latent(x float64, m [3]float64) ([3]float64, error)
}

// ParseMetric maps a configuration string onto a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discount", "discount-factor", "df":
		return DiscountFactor{}, nil
	case "zero", "zero-rate", "":
		return ZeroRate{}, nil
	case "log-discount", "logdf":
		return LogDiscount{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidArgument, s)
	}
}

// DiscountFactor is the latent curve itself.
type DiscountFactor struct{}

func (DiscountFactor) Name() string { return "discount-factor" }

func (DiscountFactor) Value(curve spline.Curve, x float64) (float64, error) {
	return curve.Evaluate(x)
}

func (DiscountFactor) Latent(_ float64, m [3]float64) ([3]float64, error) { return m, nil }

// ZeroRate is the continuously compounded zero rate z(x) = -ln D(x) / t with
// t = x - Anchor, and the limit -D'/D at the anchor.
type ZeroRate struct {
	Anchor float64
}

// WithAnchor measures a ZeroRate metric's time from anchor. Other metrics
// do not depend on time and are returned unchanged.
func WithAnchor(m Metric, anchor float64) Metric {
	if _, ok := m.(ZeroRate); ok {
		return ZeroRate{Anchor: anchor}
	}
	return m
}

func (ZeroRate) Name() string { return "zero-rate" }

func (z ZeroRate) Value(curve spline.Curve, x float64) (float64, error) {
	d, err := curve.Evaluate(x)
	if err != nil {
		return 0, err
	}
	if !(d > 0) {
		return 0, fmt.Errorf("%w: discount factor %v at %v", ErrInvalidArgument, d, x)
	}
	t := x - z.Anchor
	if t == 0 {
		d1, err := curve.Derivative(x, 1)
		if err != nil {
			return 0, err
		}
		return -d1 / d, nil
	}
	return -math.Log(d) / t, nil
}

// Latent writes g = z·t, so that D = exp(-g) and
//
//	g' = z't + z, g'' = z''t + 2z', D' = -g'D, D'' = (g'² - g'')D.
func (z ZeroRate) Latent(x float64, m [3]float64) ([3]float64, error) {
	t := x - z.Anchor
	g := m[0] * t
	g1 := m[1]*t + m[0]
	g2 := m[2]*t + 2*m[1]
	return fromLog(g, g1, g2), nil
}

// LogDiscount is g(x) = -ln D(x).
type LogDiscount struct{}

func (LogDiscount) Name() string { return "log-discount" }

func (LogDiscount) Value(curve spline.Curve, x float64) (float64, error) {
	d, err := curve.Evaluate(x)
	if err != nil {
		return 0, err
	}
	if !(d > 0) {
		return 0, fmt.Errorf("%w: discount factor %v at %v", ErrInvalidArgument, d, x)
	}
	return -math.Log(d), nil
}

func (LogDiscount) Latent(_ float64, m [3]float64) ([3]float64, error) {
	return fromLog(m[0], m[1], m[2]), nil
}

func fromLog(g, g1, g2 float64) [3]float64 {
	d := math.Exp(-g)
	return [3]float64{d, -g1 * d, (g1*g1 - g2) * d}
}

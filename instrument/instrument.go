// Package instrument provides reference calibration instruments on a scalar
// year-fraction axis: deposits, zero-coupon bonds, FRAs and fixed-vs-overnight
// par swaps. Each one prices its measures off a spline.Curve and reports the
// analytic partials the quote Jacobian needs.
package instrument

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/spline"
)

// Measure names.
const (
	MeasureRate           = "Rate"
	MeasureDiscountFactor = "DiscountFactor"
	MeasureForwardRate    = "ForwardRate"
	MeasureSwapRate       = "SwapRate"
)

var (
	ErrInvalidArgument = spline.ErrInvalidArgument
	ErrUnknownMeasure  = errors.New("instrument: unknown measure")
	// ErrDegenerateCurve is returned when a discount factor or annuity the
	// measure divides by is zero or non-finite.
	ErrDegenerateCurve = errors.New("instrument: degenerate curve")
)

var (
	_ calibrate.Sensitive = (*Deposit)(nil)
	_ calibrate.Sensitive = (*ZeroBond)(nil)
	_ calibrate.Sensitive = (*FRA)(nil)
	_ calibrate.Sensitive = (*Swap)(nil)
)

// Conventions are the schedule parameters of a swap's fixed leg.
type Conventions struct {
	// FixedFrequency is the number of fixed coupons per year.
	FixedFrequency int
}

// AnnualFixed is the OIS fixed-leg convention: one coupon per year.
var AnnualFixed = Conventions{FixedFrequency: 1}

func (c Conventions) validate() error {
	if c.FixedFrequency <= 0 || c.FixedFrequency > 12 {
		return fmt.Errorf("%w: fixed frequency %d", ErrInvalidArgument, c.FixedFrequency)
	}
	return nil
}

func unknown(name, measure string) error {
	return fmt.Errorf("%s: %w %q", name, ErrUnknownMeasure, measure)
}

func checkSpan(name string, start, end float64) error {
	if !finite(start) || !finite(end) {
		return fmt.Errorf("%s: %w: non-finite span [%v, %v]", name, ErrInvalidArgument, start, end)
	}
	if start < 0 || end <= start {
		return fmt.Errorf("%s: %w: span [%v, %v]", name, ErrInvalidArgument, start, end)
	}
	return nil
}

// discount reads D(x) and rejects values the measures cannot divide by.
func discount(c spline.Curve, x float64) (float64, error) {
	d, err := c.Evaluate(x)
	if err != nil {
		return 0, err
	}
	if d == 0 || !finite(d) {
		return 0, fmt.Errorf("%w: D(%v) = %v", ErrDegenerateCurve, x, d)
	}
	return d, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func errDegenerateLog(x, d float64) error {
	return fmt.Errorf("%w: log of D(%v) = %v", ErrDegenerateCurve, x, d)
}

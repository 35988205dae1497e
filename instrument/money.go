package instrument

import (
	"math"

	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/spline"
)

// simpleForward is the simple rate over [s, e]: (D(s)/D(e) - 1) / (e - s).
func simpleForward(c spline.Curve, s, e float64) (float64, error) {
	ds, err := discount(c, s)
	if err != nil {
		return 0, err
	}
	de, err := discount(c, e)
	if err != nil {
		return 0, err
	}
	return (ds/de - 1) / (e - s), nil
}

func simpleForwardNodes(c spline.Curve, s, e float64) ([]calibrate.Node, error) {
	ds, err := discount(c, s)
	if err != nil {
		return nil, err
	}
	de, err := discount(c, e)
	if err != nil {
		return nil, err
	}
	tau := e - s
	return []calibrate.Node{
		{Ordinate: s, Weight: 1 / (de * tau)},
		{Ordinate: e, Weight: -ds / (de * de * tau)},
	}, nil
}

// Deposit is a cash deposit from Start to End quoted as a simple rate.
type Deposit struct {
	name       string
	start, end float64
}

// NewDeposit returns a deposit over [start, end].
func NewDeposit(name string, start, end float64) (*Deposit, error) {
	if err := checkSpan(name, start, end); err != nil {
		return nil, err
	}
	return &Deposit{name: name, start: start, end: end}, nil
}

func (d *Deposit) Name() string { return d.name }
func (d *Deposit) Maturity() float64 { return d.end }

func (d *Deposit) Measure(c spline.Curve, measure string) (float64, error) {
	if measure != MeasureRate {
		return 0, unknown(d.name, measure)
	}
	return simpleForward(c, d.start, d.end)
}

func (d *Deposit) ResponseSensitivity(c spline.Curve, measure string) ([]calibrate.Node, error) {
	if measure != MeasureRate {
		return nil, unknown(d.name, measure)
	}
	return simpleForwardNodes(c, d.start, d.end)
}

// FRA is a forward rate agreement over [Start, End].
type FRA struct {
	name       string
	start, end float64
}

// NewFRA returns a forward rate agreement over [start, end].
func NewFRA(name string, start, end float64) (*FRA, error) {
	if err := checkSpan(name, start, end); err != nil {
		return nil, err
	}
	return &FRA{name: name, start: start, end: end}, nil
}

func (f *FRA) Name() string { return f.name }
func (f *FRA) Maturity() float64 { return f.end }

func (f *FRA) Measure(c spline.Curve, measure string) (float64, error) {
	if measure != MeasureForwardRate {
		return 0, unknown(f.name, measure)
	}
	return simpleForward(c, f.start, f.end)
}

func (f *FRA) ResponseSensitivity(c spline.Curve, measure string) ([]calibrate.Node, error) {
	if measure != MeasureForwardRate {
		return nil, unknown(f.name, measure)
	}
	return simpleForwardNodes(c, f.start, f.end)
}

// ZeroBond pays 1 at maturity. It is quoted either as its price
// ("DiscountFactor") or its continuously compounded zero rate ("Rate").
type ZeroBond struct {
	name     string
	maturity float64
}

// NewZeroBond returns a zero-coupon bond maturing at maturity > 0.
func NewZeroBond(name string, maturity float64) (*ZeroBond, error) {
	if err := checkSpan(name, 0, maturity); err != nil {
		return nil, err
	}
	return &ZeroBond{name: name, maturity: maturity}, nil
}

func (z *ZeroBond) Name() string { return z.name }
func (z *ZeroBond) Maturity() float64 { return z.maturity }

func (z *ZeroBond) Measure(c spline.Curve, measure string) (float64, error) {
	switch measure {
	case MeasureDiscountFactor:
		return c.Evaluate(z.maturity)
	case MeasureRate:
		d, err := discount(c, z.maturity)
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, errDegenerateLog(z.maturity, d)
		}
		return -math.Log(d) / z.maturity, nil
	default:
		return 0, unknown(z.name, measure)
	}
}

func (z *ZeroBond) ResponseSensitivity(c spline.Curve, measure string) ([]calibrate.Node, error) {
	switch measure {
	case MeasureDiscountFactor:
		return []calibrate.Node{{Ordinate: z.maturity, Weight: 1}}, nil
	case MeasureRate:
		d, err := discount(c, z.maturity)
		if err != nil {
			return nil, err
		}
		return []calibrate.Node{{Ordinate: z.maturity, Weight: -1 / (z.maturity * d)}}, nil
	default:
		return nil, unknown(z.name, measure)
	}
}

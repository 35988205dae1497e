package instrument

import (
	"fmt"
	"math"

	"github.com/meenmo/curvecal/calibrate"
	"github.com/meenmo/curvecal/spline"
)

// stubTolerance merges a front stub shorter than this (in years) into the
// first full period.
const stubTolerance = 1.0 / 365

// Coupon is one fixed-leg period.
type Coupon struct {
	Payment float64
	Accrual float64
}

// Swap is a fixed-vs-overnight par swap. Its floating leg telescopes to
// D(start) - D(maturity), so the par rate is
//
//	r = (D(start) - D(maturity)) / Σ α_k D(t_k)
type Swap struct {
	name     string
	start    float64
	maturity float64
	conv     Conventions
	coupons  []Coupon
}

// NewSwap returns a par swap from start to maturity.
func NewSwap(name string, start, maturity float64, conv Conventions) (*Swap, error) {
	if err := checkSpan(name, start, maturity); err != nil {
		return nil, err
	}
	if err := conv.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Swap{
		name:     name,
		start:    start,
		maturity: maturity,
		conv:     conv,
		coupons:  Schedule(start, maturity, conv),
	}, nil
}

// Schedule rolls the fixed leg backward from maturity so that coupon dates
// line up with it; an irregular period, if any, is the first one.
func Schedule(start, maturity float64, conv Conventions) []Coupon {
	step := 1 / float64(conv.FixedFrequency)
	var dates []float64
	for k := 0; ; k++ {
		t := maturity - float64(k)*step
		if t <= start+stubTolerance {
			break
		}
		dates = append([]float64{t}, dates...)
	}
	if len(dates) == 0 {
		dates = []float64{maturity}
	}
	coupons := make([]Coupon, len(dates))
	prev := start
	for i, t := range dates {
		coupons[i] = Coupon{Payment: t, Accrual: t - prev}
		prev = t
	}
	return coupons
}

func (s *Swap) Name() string { return s.name }
func (s *Swap) Maturity() float64 { return s.maturity }
func (s *Swap) Conventions() Conventions { return s.conv }
func (s *Swap) Coupons() []Coupon { return append([]Coupon(nil), s.coupons...) }

// Annuity returns Σ α_k D(t_k).
func (s *Swap) Annuity(c spline.Curve) (float64, error) {
	a := 0.0
	for _, cp := range s.coupons {
		d, err := c.Evaluate(cp.Payment)
		if err != nil {
			return 0, err
		}
		a += cp.Accrual * d
	}
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, fmt.Errorf("%s: %w: annuity %v", s.name, ErrDegenerateCurve, a)
	}
	return a, nil
}

func (s *Swap) par(c spline.Curve) (rate, annuity, d0 float64, err error) {
	annuity, err = s.Annuity(c)
	if err != nil {
		return 0, 0, 0, err
	}
	d0, err = c.Evaluate(s.start)
	if err != nil {
		return 0, 0, 0, err
	}
	dn, err := c.Evaluate(s.maturity)
	if err != nil {
		return 0, 0, 0, err
	}
	return (d0 - dn) / annuity, annuity, d0, nil
}

func (s *Swap) Measure(c spline.Curve, measure string) (float64, error) {
	if measure != MeasureSwapRate {
		return 0, unknown(s.name, measure)
	}
	r, _, _, err := s.par(c)
	return r, err
}

// ResponseSensitivity differentiates the par rate:
//
//	∂r/∂D(start)    =  1/A
//	∂r/∂D(maturity) = -1/A
//	∂r/∂D(t_k)      = -r·α_k/A
func (s *Swap) ResponseSensitivity(c spline.Curve, measure string) ([]calibrate.Node, error) {
	if measure != MeasureSwapRate {
		return nil, unknown(s.name, measure)
	}
	r, a, _, err := s.par(c)
	if err != nil {
		return nil, err
	}
	nodes := make([]calibrate.Node, 0, len(s.coupons)+2)
	nodes = append(nodes,
		calibrate.Node{Ordinate: s.start, Weight: 1 / a},
		calibrate.Node{Ordinate: s.maturity, Weight: -1 / a},
	)
	for _, cp := range s.coupons {
		nodes = append(nodes, calibrate.Node{Ordinate: cp.Payment, Weight: -r * cp.Accrual / a})
	}
	return nodes, nil
}

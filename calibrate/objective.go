package calibrate

import (
	"fmt"

	"github.com/meenmo/curvecal/spline"
)

// bootstrap holds the constraint rows of one segment. Every row except the
// free one has a fixed target; the free row (the right-edge value) is the
// parameter the root search varies.
type bootstrap struct {
	locs      []spline.Location
	rhs       []float64
	inherited int // leading rows copied from the previous segment
	free      int
	system    *spline.System
}

// newBootstrap lays out segment i's constraints:
//
//	i > 0:  derivatives 0..c at the left edge match segment i-1
//	i = 0:  value = left, plus the boundary rows
//	free:   value at the right edge
//	spare:  derivatives 2, 3, ... vanish at the right edge
func newBootstrap(s *spline.Stretch, i int, left float64) (*bootstrap, error) {
	seg := s.Segment(i)
	c := s.Continuity()
	k := seg.Count()
	b := &bootstrap{locs: make([]spline.Location, 0, k), rhs: make([]float64, 0, k)}

	if i == 0 {
		b.add(seg.Left(), 0, left)
		for _, order := range s.Boundary().LeftOrders(c) {
			b.add(seg.Left(), order, 0)
		}
	} else {
		prev := s.Segment(i - 1)
		for order := 0; order <= c; order++ {
			v, err := prev.Derivative(seg.Left(), order)
			if err != nil {
				return nil, fmt.Errorf("segment %d: inherit order %d: %w", i, order, err)
			}
			b.add(seg.Left(), order, v)
		}
		b.inherited = c + 1
	}

	b.free = len(b.locs)
	b.add(seg.Right(), 0, b.rhs[0])
	for order := 2; len(b.locs) < k; order++ {
		b.add(seg.Right(), order, 0)
	}
	if len(b.locs) > k {
		return nil, fmt.Errorf("segment %d: %w: %d constraints for %d functions", i, spline.ErrBasisOrderTooLow, len(b.locs), k)
	}

	sys, err := seg.System(b.locs)
	if err != nil {
		return nil, fmt.Errorf("segment %d: %w", i, err)
	}
	b.system = sys
	return b, nil
}

func (b *bootstrap) add(x float64, order int, v float64) {
	b.locs = append(b.locs, spline.Location{Ordinate: x, Order: order})
	b.rhs = append(b.rhs, v)
}

// guess is the initial parameter: the inherited left value, so segment 0
// starts from the anchor and later segments from the previous right edge.
func (b *bootstrap) guess() float64 { return b.rhs[0] }

// coefficients solves the segment for parameter p.
func (b *bootstrap) coefficients(p float64) ([]float64, error) {
	rhs := append([]float64(nil), b.rhs...)
	rhs[b.free] = p
	return b.system.Solve(rhs)
}

// objective prices one binding on the frontier curve for a trial parameter.
type objective struct {
	stretch *spline.Stretch
	index   int
	rows    *bootstrap
	binding Binding
}

func (o *objective) Evaluate(p float64) (float64, error) {
	coef, err := o.rows.coefficients(p)
	if err != nil {
		return 0, err
	}
	curve, err := o.stretch.Frontier(o.index, coef)
	if err != nil {
		return 0, err
	}
	return o.binding.Instrument.Measure(curve, o.binding.Measure)
}

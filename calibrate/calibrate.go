// Package calibrate bootstraps a spline stretch from instrument quotes.
//
// Segments are solved left to right. Segment i inherits its left-edge value
// and derivatives from segment i-1 (or the anchor and boundary rows for the
// first segment), leaves its right-edge value free, and pins any spare basis
// freedom with vanishing right-edge derivatives. A scalar root search on that
// free value reprices binding i exactly; the segment is then frozen and the
// next one begins. Quote sensitivities accumulate alongside.
package calibrate

import (
	"fmt"

	"github.com/meenmo/curvecal/rootfind"
	"github.com/meenmo/curvecal/spline"
)

// Calibrate solves a clone of skeleton against bindings. Binding i (after
// SortBindings) must mature in (x_i, x_{i+1}]. On failure no stretch is
// returned and skeleton is unchanged; root-search failures come back as
// *Failure.
func Calibrate(skeleton *spline.Stretch, bindings []Binding, opts ...Option) (*Result, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("Calibrate: %w", o.err)
	}
	if skeleton == nil {
		return nil, fmt.Errorf("Calibrate: %w: nil stretch", ErrInvalidArgument)
	}
	if !finite(o.leftValue) {
		return nil, fmt.Errorf("Calibrate: %w: left value %v", ErrInvalidArgument, o.leftValue)
	}
	for i, b := range bindings {
		if err := b.validate(i); err != nil {
			return nil, fmt.Errorf("Calibrate: %w", err)
		}
	}
	sorted := SortBindings(bindings)
	if len(sorted) != skeleton.Len() {
		return nil, fmt.Errorf("Calibrate: %w: %d distinct maturities for %d segments", ErrInvalidArgument, len(sorted), skeleton.Len())
	}
	knots := skeleton.Knots()
	for i, b := range sorted {
		if m := b.Instrument.Maturity(); !(m > knots[i] && m <= knots[i+1]) {
			return nil, fmt.Errorf("Calibrate: %w: %s matures at %v outside segment %d (%v, %v]",
				ErrInvalidArgument, b.Instrument.Name(), m, i, knots[i], knots[i+1])
		}
	}
	for i, seg := range skeleton.Segments() {
		if seg.Calibrated() {
			return nil, fmt.Errorf("Calibrate: segment %d: %w", i, spline.ErrAlreadyCalibrated)
		}
	}

	solver := o.solver
	if solver == nil {
		s, err := rootfind.New(o.method, o.conv)
		if err != nil {
			return nil, fmt.Errorf("Calibrate: %w", err)
		}
		solver = s
	}

	s := skeleton.Clone()
	prop := newPropagator(s, len(sorted))
	reports := make([]SegmentReport, len(sorted))
	log := o.logger.With("segments", len(sorted), "boundary", s.Boundary().String(), "continuity", s.Continuity())

	for i, b := range sorted {
		rows, err := newBootstrap(s, i, o.leftValue)
		if err != nil {
			return nil, fmt.Errorf("Calibrate: %w", err)
		}
		obj := &objective{stretch: s, index: i, rows: rows, binding: b}

		res, err := solver.Solve(obj, b.Quote, o.initialize(rows.guess()))
		if err != nil {
			log.Warn("segment calibration failed",
				"index", i,
				"instrument", b.Instrument.Name(),
				"quote", b.Quote,
				"error", err,
			)
			return nil, &Failure{Index: i, Instrument: b.Instrument.Name(), Maturity: b.Instrument.Maturity(), Err: err}
		}

		coef, err := rows.coefficients(res.Root)
		if err != nil {
			return nil, fmt.Errorf("Calibrate: segment %d: %w", i, err)
		}
		if err := s.Segment(i).Freeze(coef); err != nil {
			return nil, fmt.Errorf("Calibrate: segment %d: %w", i, err)
		}
		prop.extend(i, rows, coef, b)

		reports[i] = SegmentReport{
			Index:       i,
			Instrument:  b.Instrument.Name(),
			Maturity:    b.Instrument.Maturity(),
			Quote:       b.Quote,
			Parameter:   res.Root,
			Iterations:  res.Iterations,
			Evaluations: res.Evaluations,
		}
		log.Debug("segment calibrated",
			"index", i,
			"instrument", b.Instrument.Name(),
			"measure", b.Measure,
			"parameter", res.Root,
			"iterations", res.Iterations,
		)
	}

	if err := s.CheckContinuity(o.contTol); err != nil {
		return nil, fmt.Errorf("Calibrate: %w", err)
	}
	if prop.err != nil {
		log.Info("jacobian unavailable", "error", prop.err)
	}
	log.Debug("stretch calibrated")
	return &Result{stretch: s, bindings: sorted, reports: reports, prop: prop}, nil
}

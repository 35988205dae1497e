package calibrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/curvecal/spline"
)

// OutputKind selects what a Jacobian row differentiates.
type OutputKind int

const (
	// OutputValue is the curve value (a discount factor).
	OutputValue OutputKind = iota
	// OutputDerivative is the Order-th curve derivative.
	OutputDerivative
	// OutputForward is the instantaneous forward -D'(x)/D(x).
	OutputForward
)

// Output is one Jacobian row.
type Output struct {
	Kind     OutputKind
	Ordinate float64
	Order    int
}

// Value is the curve value at x.
func Value(x float64) Output { return Output{Kind: OutputValue, Ordinate: x} }

// Derivative is the order-th curve derivative at x.
func Derivative(x float64, order int) Output {
	return Output{Kind: OutputDerivative, Ordinate: x, Order: order}
}

// InstantaneousForward is -D'(x)/D(x).
func InstantaneousForward(x float64) Output { return Output{Kind: OutputForward, Ordinate: x} }

// SegmentReport summarises one segment's root search.
type SegmentReport struct {
	Index       int
	Instrument  string
	Maturity    float64
	Quote       float64
	Parameter   float64
	Iterations  int
	Evaluations int
}

// Result is a calibrated stretch together with its quote sensitivities.
type Result struct {
	stretch  *spline.Stretch
	bindings []Binding
	reports  []SegmentReport
	prop     *propagator
}

// Stretch returns the calibrated stretch.
func (r *Result) Stretch() *spline.Stretch { return r.stretch }

// Bindings returns the bindings in calibration order (sorted, deduplicated).
func (r *Result) Bindings() []Binding { return append([]Binding(nil), r.bindings...) }

// Reports returns one entry per segment.
func (r *Result) Reports() []SegmentReport { return append([]SegmentReport(nil), r.reports...) }

// Residuals reprices every binding on the calibrated stretch and returns
// measure - quote.
func (r *Result) Residuals() ([]float64, error) {
	out := make([]float64, len(r.bindings))
	for i, b := range r.bindings {
		v, err := b.Instrument.Measure(r.stretch, b.Measure)
		if err != nil {
			return nil, fmt.Errorf("Residuals: %s: %w", b.Instrument.Name(), err)
		}
		out[i] = v - b.Quote
	}
	return out, nil
}

// QuoteJacobian returns ∂p/∂q, the sensitivity of every segment's right-edge
// value to every quote. It is lower triangular.
func (r *Result) QuoteJacobian() (*mat.Dense, error) {
	if r.prop.err != nil {
		return nil, r.prop.err
	}
	return mat.DenseCopyOf(r.prop.quote), nil
}

// Jacobian returns ∂D(x)/∂q for each ordinate: one row per ordinate, one
// column per binding.
func (r *Result) Jacobian(ordinates []float64) (*mat.Dense, error) {
	outs := make([]Output, len(ordinates))
	for i, x := range ordinates {
		outs[i] = Value(x)
	}
	return r.JacobianOf(outs)
}

// JacobianOf returns one row of quote sensitivities per output.
func (r *Result) JacobianOf(outs []Output) (*mat.Dense, error) {
	if r.prop.err != nil {
		return nil, r.prop.err
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("JacobianOf: %w: no outputs", ErrInvalidArgument)
	}
	jac := mat.NewDense(len(outs), r.prop.n, nil)
	for i, out := range outs {
		row, err := r.outputRow(out)
		if err != nil {
			return nil, fmt.Errorf("JacobianOf: output %d: %w", i, err)
		}
		jac.SetRow(i, row)
	}
	return jac, nil
}

func (r *Result) outputRow(out Output) ([]float64, error) {
	switch out.Kind {
	case OutputValue:
		return r.prop.row(out.Ordinate, 0)
	case OutputDerivative:
		return r.prop.row(out.Ordinate, out.Order)
	case OutputForward:
		// f = -D'/D, so ∂f = -∂D'/D + D'·∂D/D².
		d, err := r.stretch.Evaluate(out.Ordinate)
		if err != nil {
			return nil, err
		}
		d1, err := r.stretch.Derivative(out.Ordinate, 1)
		if err != nil {
			return nil, err
		}
		if d == 0 {
			return nil, fmt.Errorf("%w: zero curve value at %v", ErrInvalidArgument, out.Ordinate)
		}
		dv, err := r.prop.row(out.Ordinate, 0)
		if err != nil {
			return nil, err
		}
		ds, err := r.prop.row(out.Ordinate, 1)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(dv))
		for k := range row {
			row[k] = -ds[k]/d + d1*dv[k]/(d*d)
		}
		return row, nil
	default:
		return nil, fmt.Errorf("%w: output kind %d", ErrInvalidArgument, int(out.Kind))
	}
}

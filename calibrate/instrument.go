package calibrate

import "github.com/meenmo/curvecal/spline"

// Instrument is the valuation collaborator the calibrator calls into. It
// computes a named calibration measure ("Rate", "SwapRate", ...) on a trial
// curve and knows nothing about segments or solvers.
type Instrument interface {
	Name() string
	// Maturity is the last ordinate the measure depends on.
	Maturity() float64
	Measure(curve spline.Curve, measure string) (float64, error)
}

// Node is one term of an instrument's linear dependence on the curve: Weight
// is ∂measure / ∂(Order-th derivative of the curve at Ordinate).
type Node struct {
	Ordinate float64
	Order    int
	Weight   float64
}

// Sensitive instruments expose the partial derivatives the quote Jacobian
// needs. Instruments that do not implement it still calibrate, but their
// curves report ErrJacobianUnavailable.
type Sensitive interface {
	Instrument
	ResponseSensitivity(curve spline.Curve, measure string) ([]Node, error)
}

package calibrate

import (
	"errors"
	"fmt"

	"github.com/meenmo/curvecal/spline"
)

var (
	// ErrInvalidArgument is shared with the spline and basis packages.
	ErrInvalidArgument = spline.ErrInvalidArgument
	// ErrJacobianUnavailable is returned by the Jacobian accessors when a
	// required partial derivative could not be obtained.
	ErrJacobianUnavailable = errors.New("calibrate: jacobian unavailable")
)

// Failure reports the segment whose root search failed. It unwraps to the
// underlying rootfind or measure error.
type Failure struct {
	Index      int
	Instrument string
	Maturity   float64
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("calibrate: segment %d (%s, maturity %v): %v", f.Index, f.Instrument, f.Maturity, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

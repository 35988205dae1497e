package spline

import (
	"errors"

	"github.com/meenmo/curvecal/basis"
)

var (
	// ErrInvalidArgument is shared with the basis package so callers can match
	// malformed input with a single errors.Is check.
	ErrInvalidArgument = basis.ErrInvalidArgument

	// ErrInsufficientKnots is returned when fewer than two ordinates are supplied.
	ErrInsufficientKnots = errors.New("spline: at least two knots are required")

	// ErrBasisOrderTooLow is returned when a basis set cannot carry the requested
	// continuity order or constraint count.
	ErrBasisOrderTooLow = errors.New("spline: basis order too low for continuity")

	// ErrOutOfDomain is returned by evaluation outside the knots when the
	// extrapolation setting does not allow it. It never invalidates the stretch.
	ErrOutOfDomain = errors.New("spline: ordinate outside stretch domain")

	// ErrContinuityViolation means adjacent calibrated segments disagree at a
	// shared knot. The calibrator never produces this for valid input, so seeing
	// it indicates a defect rather than bad market data.
	ErrContinuityViolation = errors.New("spline: continuity violation")

	// ErrNotCalibrated is returned when evaluating a segment with no coefficients.
	ErrNotCalibrated = errors.New("spline: segment not calibrated")

	// ErrAlreadyCalibrated is returned when freezing a segment twice.
	ErrAlreadyCalibrated = errors.New("spline: segment already calibrated")

	// ErrSingularSystem is returned when a constraint set does not determine the
	// segment coefficients.
	ErrSingularSystem = errors.New("spline: singular constraint system")
)
